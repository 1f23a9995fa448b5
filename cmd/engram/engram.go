// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	documentcmder "github.com/papercomputeco/engram/cmd/engram/document"
	entitycmder "github.com/papercomputeco/engram/cmd/engram/entity"
	ingestcmder "github.com/papercomputeco/engram/cmd/engram/ingest"
	memorycmder "github.com/papercomputeco/engram/cmd/engram/memory"
	migratecmder "github.com/papercomputeco/engram/cmd/engram/migrate"
	watchcmder "github.com/papercomputeco/engram/cmd/engram/watch"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is a temporally versioned memory graph for agents.

Ingest documents and conversations:
  engram ingest <file>...   Chunk, embed, and index documents
  engram watch <dir>        Follow a directory and ingest new files

Work with memories and entities:
  engram memory write       Write a memory revision
  engram memory forget      Mark a memory forgotten
  engram memory list        List current memories
  engram entity observe     Record observations about an entity
  engram document show      Show a document and its chunks

Prepare the graph store:
  engram migrate            Apply constraints and indexes`

const engramShortDesc string = "Engram - Agent Memory Graph"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram/ config directory")

	// Add subcommands
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(memorycmder.NewMemoryCmd())
	cmd.AddCommand(entitycmder.NewEntityCmd())
	cmd.AddCommand(documentcmder.NewDocumentCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
