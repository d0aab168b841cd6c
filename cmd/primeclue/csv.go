package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/philipluk/primeclue"
	"github.com/philipluk/primeclue/data"
)

// loadCSV reads a comma-separated file into a DataSet: the first column of
// every row is the class label, the rest are the numeric feature values,
// assembled into a flat one-row InputShape. Labeling beyond "first column is
// the class" is a distillation DSL the core never sees, so this stays a
// thin demo adapter rather than a faithful port of one, grounded on the
// teacher's own parseCSV (parse.go) for the encoding/csv usage pattern.
func loadCSV(path string) (*data.DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, primeclue.Wrap(err, "opening data file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	classes := map[string]data.Class{}
	classMap := map[data.Class]string{}
	var points []data.Point

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, primeclue.Wrap(err, "reading data file")
		}
		if len(row) < 2 {
			return nil, primeclue.Errorf("row has fewer than 2 columns: %v", row)
		}

		label := row[0]
		class, ok := classes[label]
		if !ok {
			class = data.Class(len(classes))
			classes[label] = class
			classMap[class] = label
		}

		features := make([]float32, 0, len(row)-1)
		for _, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 32)
			if err != nil {
				return nil, primeclue.Wrap(err, "parsing feature value")
			}
			features = append(features, float32(v))
		}

		points = append(points, data.Point{
			Input:   [][]float32{features},
			Outcome: data.Outcome{Class: class, Reward: 1, Penalty: 1},
		})
	}

	return &data.DataSet{Points: points, Classes: classMap}, nil
}
