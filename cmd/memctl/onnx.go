//go:build onnx

package main

import (
	"github.com/Gabrielmcp78/mem0-sub001/config"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
	"github.com/Gabrielmcp78/mem0-sub001/memory/embedder/onnx"
)

// newONNXEmbedder builds the local ONNX embedder.
func newONNXEmbedder(cfg config.Embedder) (memory.Embedder, func(), error) {
	e, err := onnx.New(onnx.Config{
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		LibraryPath:   cfg.LibraryPath,
		Dimensions:    cfg.Dimensions,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, func() { _ = e.Close() }, nil
}
