package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
)

var equipmentCmd = &cobra.Command{
	Use:   "equipment <equipment name>",
	Short: "Find companies that purchased a piece of equipment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		equipmentName := model.NormalizeName(strings.Join(args, " "))
		if equipmentName == "" {
			return eris.New("equipment name is empty")
		}

		records, err := env.Pipeline.SearchCompaniesByEquipment(ctx, equipmentName)
		if err != nil {
			return err
		}

		for _, rec := range records {
			if _, err := env.Store.UpsertCompany(ctx, rec); err != nil {
				zap.L().Warn("equipment: save company",
					zap.String("company", rec.Name),
					zap.Error(err))
			}
		}
		if err := env.Store.UpsertEquipment(ctx, equipmentName, len(records)); err != nil {
			zap.L().Warn("equipment: save equipment entry", zap.Error(err))
		}

		out, err := json.MarshalIndent(map[string]any{
			"equipment_name": equipmentName,
			"total_found":    len(records),
			"companies":      records,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "equipment: marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(equipmentCmd)
}
