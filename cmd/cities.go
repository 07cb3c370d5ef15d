package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sucolo/hexfeat/internal/model"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List uploaded cities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		cities, err := env.Meta.ListCities(cmd.Context())
		if err != nil {
			return err
		}
		printLines(os.Stdout, cities, "No cities found.")
		return nil
	},
}

var amenitiesCmd = &cobra.Command{
	Use:   "amenities",
	Short: "List the amenities with a point set in a city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		city, _ := cmd.Flags().GetString("city")
		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		amenities, err := env.Meta.ListAmenities(cmd.Context(), model.NormalizeCity(city))
		if err != nil {
			return err
		}
		printLines(os.Stdout, amenities, "No amenities found.")
		return nil
	},
}

var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "List the static attributes every district of a city carries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		city, _ := cmd.Flags().GetString("city")
		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		attrs, err := env.Meta.ListStaticAttributes(cmd.Context(), model.NormalizeCity(city))
		if err != nil {
			return err
		}
		printLines(os.Stdout, attrs, "No static attributes found.")
		return nil
	},
}

var amenityCountsCmd = &cobra.Command{
	Use:   "amenity-counts",
	Short: "Show the number of points per amenity in a city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		city, _ := cmd.Flags().GetString("city")
		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		counts, err := env.Meta.AmenityCounts(cmd.Context(), model.NormalizeCity(city))
		if err != nil {
			return err
		}
		printCounts(os.Stdout, counts)
		return nil
	},
}

func printLines(w io.Writer, lines []string, empty string) {
	if len(lines) == 0 {
		fmt.Fprintln(os.Stderr, empty)
		return
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func printCounts(w io.Writer, counts map[string]int64) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AMENITY\tPOINTS")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	_ = tw.Flush()
}

func init() {
	for _, c := range []*cobra.Command{amenitiesCmd, attributesCmd, amenityCountsCmd} {
		c.Flags().String("city", "", "city name")
		_ = c.MarkFlagRequired("city")
	}
	rootCmd.AddCommand(citiesCmd, amenitiesCmd, attributesCmd, amenityCountsCmd)
}
