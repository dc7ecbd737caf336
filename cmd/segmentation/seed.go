package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

const seedBatchSize = 5000

func newSeedCmd(cfgPath func() string) *cobra.Command {
	var (
		users    int
		segments []string
		prefix   string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Genera usuarios y segmentos de prueba",
		RunE: func(cmd *cobra.Command, args []string) error {
			if users < 0 {
				return fmt.Errorf("--users debe ser >= 0")
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()

			var created int64
			batch := make([]repository.CreateUserInput, 0, min(users, seedBatchSize))
			for i := 0; i < users; i++ {
				login := fmt.Sprintf("%s%07d", prefix, i)
				batch = append(batch, repository.CreateUserInput{
					Login:     login,
					Email:     login + "@example.com",
					IPAddress: fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254)),
				})
				if len(batch) == cap(batch) || i == users-1 {
					n, err := a.conn.Users().CreateBatch(ctx, batch)
					if err != nil {
						return fmt.Errorf("seed users: %w", err)
					}
					created += n
					batch = batch[:0]
				}
			}

			var segs []*repository.Segment
			for _, name := range segments {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				seg, err := a.conn.Segments().Create(ctx, name, "")
				if errors.Is(err, repository.ErrConflict) {
					seg, err = a.conn.Segments().GetByName(ctx, name)
				}
				if err != nil {
					return fmt.Errorf("seed segment %q: %w", name, err)
				}
				segs = append(segs, seg)
			}

			logger.S().Infof("seeded %d users and %d segments", created, len(segs))
			return printJSON(map[string]any{"users": created, "segments": segs})
		},
	}
	cmd.Flags().IntVar(&users, "users", 1000, "Cantidad de usuarios a crear")
	cmd.Flags().StringSliceVar(&segments, "segments", nil, "Segmentos a crear (coma separados)")
	cmd.Flags().StringVar(&prefix, "login-prefix", "user", "Prefijo de login")
	return cmd
}
