package raster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// defaultNodata is the conventional AAIGrid nodata sentinel, used when a
// file omits the NODATA_value header line.
const defaultNodata = -9999

// Open reads a raster from an Esri ASCII Grid file.
func Open(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.RasterIO, err, "open raster %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	scanner.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if scanner.Scan() {
			return scanner.Text(), true
		}
		return "", false
	}

	header := map[string]float64{"nodata_value": defaultNodata}
	var firstValue string
	for {
		word, ok := next()
		if !ok {
			return nil, errs.New(errs.RasterIO, "truncated raster header in %s", path)
		}
		key := strings.ToLower(word)
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
			raw, ok := next()
			if !ok {
				return nil, errs.New(errs.RasterIO, "missing header value for %s in %s", key, path)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errs.Wrap(errs.RasterIO, err, "bad header value for %s in %s", key, path)
			}
			header[key] = v
			continue
		}
		// First data token.
		firstValue = word
		break
	}

	for _, key := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[key]; !ok {
			return nil, errs.New(errs.RasterIO, "raster %s missing header field %s", path, key)
		}
	}

	width := int(header["ncols"])
	height := int(header["nrows"])
	cell := header["cellsize"]
	if width <= 0 || height <= 0 || cell <= 0 {
		return nil, errs.New(errs.RasterIO, "raster %s has invalid dimensions", path)
	}

	// AAIGrid stores the lower-left corner; the grid itself is written
	// top row first, so the transform origin is the upper-left corner.
	transform := GeoTransform{
		header["xllcorner"], cell, 0,
		header["yllcorner"] + float64(height)*cell, 0, -cell,
	}

	r := &Raster{
		Width:     width,
		Height:    height,
		Transform: transform,
		Nodata:    header["nodata_value"],
		Data:      make([]float64, width*height),
	}

	read := func(raw string, i int) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errs.Wrap(errs.RasterIO, err, "bad pixel value %q in %s", raw, path)
		}
		r.Data[i] = v
		return nil
	}

	if err := read(firstValue, 0); err != nil {
		return nil, err
	}
	for i := 1; i < len(r.Data); i++ {
		raw, ok := next()
		if !ok {
			return nil, errs.New(errs.RasterIO, "raster %s truncated at pixel %d of %d", path, i, len(r.Data))
		}
		if err := read(raw, i); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.RasterIO, err, "read raster %s", path)
	}
	return r, nil
}

// Write stores the raster as an Esri ASCII Grid file. The format cannot
// express rotation or non-square pixels, so rasters with either are
// rejected; nothing in this module produces them.
func (r *Raster) Write(path string) error {
	if r.Transform[2] != 0 || r.Transform[4] != 0 {
		return errs.New(errs.RasterIO, "cannot write rotated raster to %s", path)
	}
	if r.Transform[1] != -r.Transform[5] {
		return errs.New(errs.RasterIO, "cannot write non-square pixels to %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.RasterIO, err, "create raster %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	cell := r.Transform.PixelWidth()
	yll := r.Transform[3] + float64(r.Height)*r.Transform.PixelHeight()
	fmt.Fprintf(w, "ncols %d\n", r.Width)
	fmt.Fprintf(w, "nrows %d\n", r.Height)
	fmt.Fprintf(w, "xllcorner %s\n", formatValue(r.Transform[0]))
	fmt.Fprintf(w, "yllcorner %s\n", formatValue(yll))
	fmt.Fprintf(w, "cellsize %s\n", formatValue(cell))
	fmt.Fprintf(w, "NODATA_value %s\n", formatValue(r.Nodata))

	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			if col > 0 {
				if err := w.WriteByte(' '); err != nil {
					return errs.Wrap(errs.RasterIO, err, "write raster %s", path)
				}
			}
			if _, err := w.WriteString(formatValue(r.At(col, row))); err != nil {
				return errs.Wrap(errs.RasterIO, err, "write raster %s", path)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return errs.Wrap(errs.RasterIO, err, "write raster %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(errs.RasterIO, err, "write raster %s", path)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
