package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"phenoqc/internal/blob"
)

// ExportPrefix is the key prefix under which snapshots are written.
const ExportPrefix = "exports"

// ExportKey returns the storage key of a visualisation snapshot.
func ExportKey(v Visualisation) string {
	return path.Join(ExportPrefix, v.Context.Key(), v.ID+".json")
}

// Export writes v as JSON to store. When the backend can sign links the
// returned Info carries a download URL.
func (s *Service) Export(ctx context.Context, store blob.Store, v Visualisation) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "export", func(ctx context.Context) error {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode visualisation %s: %w", v.ID, err)
		}
		info, err = store.Put(ctx, ExportKey(v), bytes.NewReader(body), blob.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"dataset":  v.Dataset,
				"context":  v.Context.Key(),
				"plot":     v.PlotType.Kind.String(),
				"zygosity": v.Zygosity,
			},
		})
		if err != nil {
			return fmt.Errorf("store visualisation %s: %w", v.ID, err)
		}
		url, err := store.PresignURL(ctx, info.Key, blob.SignedURLOptions{})
		switch {
		case err == nil:
			info.URL = url
		case errors.Is(err, blob.ErrUnsupported):
		default:
			return fmt.Errorf("sign visualisation %s: %w", v.ID, err)
		}
		s.logger.Info("visualisation exported", "key", info.Key, "driver", string(store.Driver()), "bytes", info.Size)
		return nil
	})
	return info, err
}
