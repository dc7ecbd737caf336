// Command segmentation es el binario operativo del motor de distribución:
// levanta la superficie de ops, aplica migraciones, genera datos de prueba y
// dispara corridas de distribución desde la línea de comandos.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

func main() {
	_ = godotenv.Load(".env")     // base
	_ = godotenv.Load(".env.dev") // dev overrides

	var configPath = envOr("CONFIG_PATH", "config.yaml")

	root := &cobra.Command{
		Use:           "segmentation",
		Short:         "Motor de distribución de usuarios en segmentos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "Archivo YAML de configuración (env CONFIG_PATH)")

	cfgPath := func() string { return configPath }
	root.AddCommand(
		newServeCmd(cfgPath),
		newMigrateCmd(cfgPath),
		newSeedCmd(cfgPath),
		newDistributeCmd(cfgPath),
		newMemberCmd(cfgPath),
	)

	err := root.ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// printJSON escribe v indentado en stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
