package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newMemberCmd(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Agrega o quita un usuario de un segmento",
	}

	var userID, segmentID int64
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Agrega el usuario al segmento (no falla si ya es miembro)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.engine.AddMember(cmd.Context(), userID, segmentID)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"created": strconv.FormatBool(created)})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Quita el usuario del segmento (falla si no es miembro)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RemoveMember(cmd.Context(), userID, segmentID); err != nil {
				return err
			}
			return printJSON(map[string]bool{"removed": true})
		},
	}

	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().Int64Var(&userID, "user", 0, "ID del usuario")
		c.Flags().Int64Var(&segmentID, "segment", 0, "ID del segmento")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("segment")
	}
	cmd.AddCommand(addCmd, removeCmd)
	return cmd
}
