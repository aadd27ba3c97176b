package cfg

import (
	"context"

	"github.com/spf13/viper"

	"grabarr/internal/app"
	"grabarr/internal/domain/keys"
	"grabarr/internal/models"
	"grabarr/internal/thumbs"
)

// coreOptions builds the core settings from the bound flags, environment and config file.
func coreOptions() app.Options {
	return app.Options{
		YTDLPPath:          viper.GetString(keys.YTDLPPath),
		FFmpegPath:         viper.GetString(keys.FFmpegPath),
		CookiesFromBrowser: viper.GetString(keys.CookiesFromBrowser),
		Destination:        viper.GetString(keys.Destination),
		Workers:            viper.GetInt(keys.Workers),
		ProbeTimeout:       viper.GetDuration(keys.ProbeTimeout),
		Thumbnails: thumbs.Options{
			URLTemplate: viper.GetString(keys.ThumbnailURLTemplate),
			Timeout:     viper.GetDuration(keys.ThumbnailTimeout),
			RatePerSec:  viper.GetFloat64(keys.ThumbnailRate),
			Dedupe:      viper.GetBool(keys.ThumbnailDedupe),
		},
	}
}

// selections reads the download profile.
func selections() (models.MediaType, models.Selections, error) {
	mt, err := models.ParseMediaType(viper.GetString(keys.MediaType))
	if err != nil {
		return "", models.Selections{}, err
	}
	return mt, models.Selections{
		Resolution: viper.GetInt(keys.Resolution),
		Bitrate:    viper.GetString(keys.Bitrate),
		Encoder:    viper.GetString(keys.Encoder),
	}, nil
}

// newCore starts a core from the current settings.
func newCore(ctx context.Context) (*app.Core, error) {
	return app.New(ctx, coreOptions())
}
