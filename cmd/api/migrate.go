package main

import (
	"log"

	"github.com/spf13/cobra"

	"trivial-go/configs"
	"trivial-go/internal/repository"
	"trivial-go/pkg/database"
)

var dropTables bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create (or drop) the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.LoadConfig()
		db := database.ConnectDB(cfg)
		defer db.Close()

		if dropTables {
			repository.DeleteAllTable(db)
			log.Println("All tables dropped")
			return nil
		}

		repository.CreateTableIfNotExists(db)
		log.Println("Schema is ready")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dropTables, "drop", false, "drop all tables instead of creating them")
}
