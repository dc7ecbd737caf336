package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/segmentation/internal/distribution"
	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

func newDistributeCmd(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Dispara una corrida de distribución",
	}

	var (
		segmentName string
		percent     float64
	)
	randomCmd := &cobra.Command{
		Use:   "random",
		Short: "Agrega al segmento un porcentaje aleatorio de la población",
		RunE: func(cmd *cobra.Command, args []string) error {
			if segmentName == "" {
				return fmt.Errorf("--segment es requerido")
			}
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.DistributeRandom(cmd.Context(), segmentName, percent)
			return report(res, err)
		},
	}
	randomCmd.Flags().StringVar(&segmentName, "segment", "", "Nombre del segmento")
	randomCmd.Flags().Float64Var(&percent, "percent", 0, "Porcentaje de la población [0,100]")

	var (
		segmentID  int64
		kind       string
		pattern    string
		patPercent float64
	)
	patternCmd := &cobra.Command{
		Use:   "pattern",
		Short: "Agrega al segmento los usuarios que coinciden con un patrón",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := repository.ParseFilterKind(kind)
			if !ok {
				return fmt.Errorf("--kind inválido %q (email-pattern|login-pattern|ip-pattern)", kind)
			}
			req := distribution.PatternRequest{SegmentID: segmentID, Kind: k, Pattern: pattern}
			if cmd.Flags().Changed("percent") {
				req.Percentage = &patPercent
			}

			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.DistributeByPattern(cmd.Context(), req)
			return report(res, err)
		},
	}
	patternCmd.Flags().Int64Var(&segmentID, "segment-id", 0, "ID del segmento")
	patternCmd.Flags().StringVar(&kind, "kind", "email-pattern", "Atributo: email-pattern|login-pattern|ip-pattern")
	patternCmd.Flags().StringVar(&pattern, "pattern", "", "Expresión regular")
	patternCmd.Flags().Float64Var(&patPercent, "percent", 100, "Porcentaje de los usuarios que coinciden (opcional)")

	cmd.AddCommand(randomCmd, patternCmd)
	return cmd
}

// report imprime el resultado (aunque sea parcial) y retorna el error de la corrida.
func report[T any](res *T, err error) error {
	if res != nil {
		if perr := printJSON(res); perr != nil {
			return perr
		}
	}
	return err
}
