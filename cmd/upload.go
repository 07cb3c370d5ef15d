package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/citydata"
	"github.com/sucolo/hexfeat/internal/dataset"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload POIs and districts of a city",
	Long:  "Creates the city index, indexes POI, district and hexagon documents, and fills the Redis point sets.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		poisPath, _ := cmd.Flags().GetString("pois")
		districtsPath, _ := cmd.Flags().GetString("districts")
		ignoreIfExists, _ := cmd.Flags().GetBool("ignore-if-exists")
		if cmd.Flags().Changed("resolution") {
			cfg.Grid.Resolution, _ = cmd.Flags().GetInt("resolution")
		}

		env, err := initEnv("upload")
		if err != nil {
			return err
		}
		defer env.Close()

		pois, err := dataset.LoadPOIs(ctx, poisPath)
		if err != nil {
			return err
		}
		districts, err := dataset.LoadDistricts(districtsPath, cfg.Upload.DistrictField)
		if err != nil {
			return err
		}

		if err := env.waitReady(ctx); err != nil {
			return err
		}

		report, err := env.CityData.UploadCity(ctx, city, citydata.Dataset{POIs: pois, Districts: districts}, citydata.UploadOptions{
			Resolution:       cfg.Grid.Resolution,
			IgnoreIfExists:   ignoreIfExists,
			WheelchairValues: cfg.Upload.WheelchairValues,
		})
		if err != nil {
			return eris.Wrap(err, "upload")
		}
		zap.L().Info("upload complete",
			zap.String("city", report.City),
			zap.Int("pois", len(pois)),
			zap.Int("districts", len(districts)),
			zap.Int("cells", report.Cells),
		)
		return nil
	},
}

var uploadPOIsCmd = &cobra.Command{
	Use:   "upload-pois",
	Short: "Append POIs to an uploaded city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		poisPath, _ := cmd.Flags().GetString("pois")

		env, err := initEnv("upload")
		if err != nil {
			return err
		}
		defer env.Close()

		pois, err := dataset.LoadPOIs(ctx, poisPath)
		if err != nil {
			return err
		}
		if _, err := env.CityData.UploadPOIs(ctx, city, pois, cfg.Upload.WheelchairValues); err != nil {
			return eris.Wrap(err, "upload-pois")
		}
		zap.L().Info("pois appended", zap.String("city", city), zap.Int("pois", len(pois)))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every document and point set of a city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		city, _ := cmd.Flags().GetString("city")
		ignore, _ := cmd.Flags().GetBool("ignore-if-not-exists")

		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.CityData.DeleteCity(ctx, city, ignore)
	},
}

func init() {
	uploadCmd.Flags().String("city", "", "city name")
	uploadCmd.Flags().String("pois", "", "POI file (.shp, .geojson, .json or .csv)")
	uploadCmd.Flags().String("districts", "", "district file (.shp, .geojson or .json)")
	uploadCmd.Flags().Int("resolution", 0, "H3 resolution (default from config)")
	uploadCmd.Flags().Bool("ignore-if-exists", false, "continue when the city index already exists")
	for _, f := range []string{"city", "pois", "districts"} {
		_ = uploadCmd.MarkFlagRequired(f)
	}

	uploadPOIsCmd.Flags().String("city", "", "city name")
	uploadPOIsCmd.Flags().String("pois", "", "POI file (.shp, .geojson, .json or .csv)")
	_ = uploadPOIsCmd.MarkFlagRequired("city")
	_ = uploadPOIsCmd.MarkFlagRequired("pois")

	deleteCmd.Flags().String("city", "", "city name")
	deleteCmd.Flags().Bool("ignore-if-not-exists", false, "succeed when the city index does not exist")
	_ = deleteCmd.MarkFlagRequired("city")

	rootCmd.AddCommand(uploadCmd, uploadPOIsCmd, deleteCmd)
}
