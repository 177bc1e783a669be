// Package tracker implements Trackers, which record the outcome of
// each episode in an experiment and save it when the experiment ends
package tracker

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Record summarizes one training episode
type Record struct {
	Episode           int
	AccumulatedReward float64
	Loss              float64
	MeanLogLikelihood float64
	Length            int
}

// Tracker keeps track of experiment data and saves the data after the
// experiment has finished
type Tracker interface {
	Track(r Record)
	Save() error
}

// Multi is a Tracker that passes every Record to each of its Trackers
type Multi []Tracker

// Track tracks r in each Tracker
func (m Multi) Track(r Record) {
	for _, t := range m {
		t.Track(r)
	}
}

// Save saves each Tracker, returning the first error encountered after
// attempting to save all of them
func (m Multi) Save() error {
	var first error
	for _, t := range m {
		if err := t.Save(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop is a Tracker that discards all data
type Nop struct{}

// Track implements the Tracker interface
func (Nop) Track(Record) {}

// Save implements the Tracker interface
func (Nop) Save() error { return nil }

// save gob-encodes data to filename
func save(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save: could not open save file")
	}

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		return errors.Wrap(err, "save: could not encode data")
	}
	return errors.Wrap(file.Close(), "save")
}

// LoadData loads and returns the data saved by a Return Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "loadData: could not open data file")
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "loadData: could not decode data")
	}
	return data, nil
}
