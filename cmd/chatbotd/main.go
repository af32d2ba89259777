package main

import (
	"fmt"
	"os"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatbotd",
		Short: "Chatbot knowledge base daemon",
		Long:  "Chatbot knowledge base daemon: document ingestion and retrieval API for RAG",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
