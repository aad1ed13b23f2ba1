// Command apprentice-mcp is an MCP server exposing the query interface
// (spec §6) so Claude (or any MCP client) can search indexed shell
// history, chat transcripts, and files alongside the apprenticed daemon.
//
// Usage:
//
//	apprentice-mcp [flags]
//
// Flags:
//
//	--home    $APPRENTICE_HOME override (default: resolved by internal/config)
//	--ollama  Ollama base URL, used when embeddings.model is an ollama/* ref
//
// The server communicates over stdio using newline-delimited JSON-RPC (the
// MCP stdio transport). Register it with Claude Code via:
//
//	claude mcp add apprentice -s user -- /path/to/apprentice-mcp [flags]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AprovanLabs/apprentice/internal/config"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/embedding"
	"github.com/AprovanLabs/apprentice/internal/search"
	"github.com/AprovanLabs/apprentice/mcpserver"
)

func main() {
	homeFlag := flag.String("home", "", "override $APPRENTICE_HOME")
	ollamaURL := flag.String("ollama", "http://localhost:11434", "Ollama base URL for ollama/* embedding models")
	flag.Parse()

	if *homeFlag != "" {
		os.Setenv("APPRENTICE_HOME", *homeFlag)
	}

	// Log to stderr to keep stdout clean for MCP JSON-RPC.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	dbPath := filepath.Join(cfg.Home, "memory", "index.db")
	store, err := dbstore.Open(dbPath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	var provider embedding.Provider
	if cfg.EmbeddingsEnabled {
		provider, err = embedding.New(cfg.EmbeddingsModel, *ollamaURL)
		if err != nil {
			log.Fatalf("building embedding provider: %v", err)
		}
	}

	searcher := search.NewSearcher(store, provider)
	searchSrv := mcpserver.NewSearchServer(searcher)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "apprentice",
		Version: "0.1.0",
	}, nil)

	searchSrv.Register(server)

	log.Printf("apprentice-mcp starting (db=%s, embeddings=%v)", dbPath, cfg.EmbeddingsEnabled)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
