package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV records, the header included, and sends them to a
// channel. Both channels are closed when reading stops; at most one error is
// sent.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "dataset: read csv row")
				return
			}
			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "dataset: csv cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func poisFromCSVFile(ctx context.Context, path string) ([]model.POI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return ReadPOIsCSV(ctx, f)
}

// ReadPOIsCSV reads POIs from CSV with a header naming at least the lon,
// lat and amenity columns. Rows with unparsable coordinates or no amenity
// are skipped.
func ReadPOIsCSV(ctx context.Context, r io.Reader) ([]model.POI, error) {
	rows, errs := StreamCSV(ctx, r, CSVOptions{TrimSpace: true})

	var header []string
	lonIdx, latIdx := -1, -1
	var out []model.POI
	skipped := 0

	for row := range rows {
		if header == nil {
			header = row
			for i, h := range header {
				switch strings.ToLower(h) {
				case PropLon:
					lonIdx = i
				case PropLat:
					latIdx = i
				}
			}
			if lonIdx < 0 || latIdx < 0 {
				// Drain so the reader goroutine can exit.
				for range rows {
				}
				return nil, eris.New("dataset: csv header needs lon and lat columns")
			}
			continue
		}

		if len(row) <= max(lonIdx, latIdx) {
			skipped++
			continue
		}
		lon, errLon := strconv.ParseFloat(row[lonIdx], 64)
		lat, errLat := strconv.ParseFloat(row[latIdx], 64)
		if errLon != nil || errLat != nil {
			skipped++
			continue
		}

		props := make(map[string]model.Value, len(header))
		for i, h := range header {
			if i < len(row) {
				props[h] = fieldValue(h, row[i])
			}
		}
		p, ok := poiFromProps(props, model.GeoPoint{Lon: lon, Lat: lat})
		if !ok {
			skipped++
			continue
		}
		out = append(out, p)
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	if header == nil {
		return nil, eris.New("dataset: csv is empty")
	}
	if skipped > 0 {
		zap.L().Warn("dataset: skipped csv rows", zap.Int("skipped", skipped))
	}
	return out, nil
}
