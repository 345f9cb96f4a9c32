//go:build !onnx

package main

import (
	"fmt"

	"github.com/Gabrielmcp78/mem0-sub001/config"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// newONNXEmbedder reports that this binary lacks ONNX support.
func newONNXEmbedder(cfg config.Embedder) (memory.Embedder, func(), error) {
	return nil, nil, fmt.Errorf("onnx embedder requires building with -tags onnx")
}
