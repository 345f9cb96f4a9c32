// memctl is the command line surface for the memory layer: add, search
// and list memories against a configured vector store, or run the stdio
// tool server / websocket server around the same manager.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"github.com/Gabrielmcp78/mem0-sub001/config"
	"github.com/Gabrielmcp78/mem0-sub001/mcp"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
	"github.com/Gabrielmcp78/mem0-sub001/server"
)

// Build flags
var Version = ""
var Commit = ""

func main() {
	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	_ = godotenv.Load()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("memctl", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "memctl [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newAddCommand(),
			newSearchCommand(),
			newGetAllCommand(),
			newGetCommand(),
			newDeleteCommand(),
			newDeleteAllCommand(),
			newResetCommand(),
			newMCPCommand(),
			newServeCommand(),
			newVersionCommand(),
		},
	}
}

// newFlagSet creates a subcommand flag set with the shared configuration
// flags bound into cfg.
func newFlagSet(name string, cfg *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	fs.StringVar(&cfg.VectorStore.Provider, "store", cfg.VectorStore.Provider, "vector store (chromem, qdrant)")
	fs.StringVar(&cfg.VectorStore.Host, "store-host", cfg.VectorStore.Host, "vector store host (qdrant)")
	fs.IntVar(&cfg.VectorStore.Port, "store-port", cfg.VectorStore.Port, "vector store port (qdrant)")
	fs.StringVar(&cfg.VectorStore.Collection, "collection", cfg.VectorStore.Collection, "vector store collection name")
	fs.StringVar(&cfg.VectorStore.Path, "store-path", cfg.VectorStore.Path, "on-disk path for the embedded store (optional)")

	fs.StringVar(&cfg.Embedder.Provider, "embedder", cfg.Embedder.Provider, "embedder (mock, openai, onnx)")
	fs.StringVar(&cfg.Embedder.Model, "embedder-model", cfg.Embedder.Model, "embedding model name")
	fs.StringVar(&cfg.Embedder.BaseURL, "embedder-base-url", cfg.Embedder.BaseURL, "embedding endpoint base URL (optional)")
	fs.StringVar(&cfg.Embedder.APIKey, "embedder-api-key", cfg.Embedder.APIKey, "embedding endpoint API key")
	fs.IntVar(&cfg.Embedder.Dimensions, "dimensions", cfg.Embedder.Dimensions, "embedding vector size")
	fs.StringVar(&cfg.Embedder.ModelPath, "onnx-model", cfg.Embedder.ModelPath, "onnx model path")
	fs.StringVar(&cfg.Embedder.TokenizerPath, "onnx-tokenizer", cfg.Embedder.TokenizerPath, "onnx tokenizer.json path")
	fs.StringVar(&cfg.Embedder.LibraryPath, "onnx-library", cfg.Embedder.LibraryPath, "libonnxruntime.so path")

	fs.StringVar(&cfg.LLM.Provider, "llm", cfg.LLM.Provider, "fact extraction LLM (anthropic, openai; empty disables)")
	fs.StringVar(&cfg.LLM.Model, "llm-model", cfg.LLM.Model, "fact extraction model name")
	fs.StringVar(&cfg.LLM.BaseURL, "llm-base-url", cfg.LLM.BaseURL, "fact extraction endpoint base URL (optional)")
	fs.StringVar(&cfg.LLM.APIKey, "llm-api-key", cfg.LLM.APIKey, "fact extraction API key")

	fs.Float64Var(&cfg.MinScore, "min-score", cfg.MinScore, "minimum similarity for search results")
	fs.IntVar(&cfg.SearchLimit, "limit", cfg.SearchLimit, "default search result count")

	return fs
}

func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithAllowMissingConfigFile(true),
		ff.WithEnvVarPrefix("MEMCTL"),
	}
}

func newAddCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("add", cfg)
	user := fs.String("user", "default", "user namespace")
	role := fs.String("role", "user", "message role for the added content")

	return &ffcli.Command{
		Name:       "add",
		ShortUsage: "memctl add [flags] <content...>",
		ShortHelp:  "store content in the user's memory",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" {
				return fmt.Errorf("add requires content")
			}
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			actions, err := mgr.Add(ctx, *user, []memory.Message{{Role: *role, Content: content}})
			if err != nil {
				return err
			}
			return printJSON(actions)
		},
	}
}

func newSearchCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("search", cfg)
	user := fs.String("user", "default", "user namespace")
	limit := fs.Int("n", 0, "max results (0 uses the configured default)")

	return &ffcli.Command{
		Name:       "search",
		ShortUsage: "memctl search [flags] <query...>",
		ShortHelp:  "search the user's memory",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("search requires a query")
			}
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			recs, err := mgr.Search(ctx, *user, query, *limit)
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
}

func newGetAllCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("get-all", cfg)
	user := fs.String("user", "default", "user namespace")

	return &ffcli.Command{
		Name:       "get-all",
		ShortUsage: "memctl get-all [flags]",
		ShortHelp:  "list every memory stored for the user",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			recs, err := mgr.GetAll(ctx, *user)
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
}

func newGetCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("get", cfg)
	user := fs.String("user", "default", "user namespace")
	id := fs.String("id", "", "memory ID")

	return &ffcli.Command{
		Name:       "get",
		ShortUsage: "memctl get -id <id> [flags]",
		ShortHelp:  "fetch one memory by ID",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *id == "" {
				return fmt.Errorf("get requires -id")
			}
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := mgr.Get(ctx, *user, *id)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func newDeleteCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("delete", cfg)
	user := fs.String("user", "default", "user namespace")
	id := fs.String("id", "", "memory ID")

	return &ffcli.Command{
		Name:       "delete",
		ShortUsage: "memctl delete -id <id> [flags]",
		ShortHelp:  "delete one memory by ID",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *id == "" {
				return fmt.Errorf("delete requires -id")
			}
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return mgr.Delete(ctx, *user, *id)
		},
	}
}

func newDeleteAllCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("delete-all", cfg)
	user := fs.String("user", "default", "user namespace")

	return &ffcli.Command{
		Name:       "delete-all",
		ShortUsage: "memctl delete-all [flags]",
		ShortHelp:  "delete every memory stored for the user",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return mgr.DeleteAll(ctx, *user)
		},
	}
}

func newResetCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("reset", cfg)

	return &ffcli.Command{
		Name:       "reset",
		ShortUsage: "memctl reset [flags]",
		ShortHelp:  "wipe the entire store, all users included",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return mgr.Reset(ctx)
		},
	}
}

func newMCPCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("mcp", cfg)

	return &ffcli.Command{
		Name:       "mcp",
		ShortUsage: "memctl mcp [flags]",
		ShortHelp:  "serve the stdio tool protocol on stdin/stdout",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Protocol traffic owns stdout; logs move to stderr.
			log.SetOutput(os.Stderr)

			srv := mcp.NewServer("memctl", version())
			for _, tool := range append([]mcp.Tool{mcp.PingTool(), mcp.EchoTool()}, mcp.MemoryTools(mgr)...) {
				if err := srv.Register(tool); err != nil {
					return err
				}
			}
			return srv.Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cfg := config.FromEnv()
	fs := newFlagSet("serve", cfg)
	addr := fs.String("addr", ":8080", "listen address")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "memctl serve [flags]",
		ShortHelp:  "serve memory operations over websocket",
		Options:    ffOptions(),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(mgr)
			go func() {
				<-ctx.Done()
				_ = srv.Shutdown(context.Background())
			}()
			return srv.Run(*addr)
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "memctl version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			fmt.Println(version())
			return nil
		},
	}
}

func version() string {
	if Version == "" {
		return "dev"
	}
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
