package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"poolprobe/internal/storage"
	"poolprobe/internal/tui/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		path, err := historyPath(Settings{HistoryDB: viper.GetString("history-db")})
		if err != nil {
			return err
		}
		store, err := storage.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), history.NewModel(items).View())
		return nil
	},
}
