// Package dedupe classifies records against the keys already committed
// to prior output and the keys seen earlier in the same run.
package dedupe

import (
	"strings"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
)

// Key identifies a beneficiary row: CPF digits plus trimmed matrícula.
// A key with an empty component never participates in dedupe.
type Key struct {
	CPFDigits string
	Matricula string
}

func (k Key) Valid() bool {
	return k.CPFDigits != "" && k.Matricula != ""
}

// KeyOf derives the dedupe key from a record.
func KeyOf(rec locate.Record) Key {
	return Key{
		CPFDigits: textnorm.Digits(rec[constants.FieldCPF]),
		Matricula: strings.TrimSpace(rec[constants.FieldTitularMatricula]),
	}
}

// Class is the dedupe outcome for one record.
type Class int

const (
	// New: not seen before; caller should keep it and, once accepted,
	// Remember it.
	New Class = iota
	// PriorDuplicate: already in persisted output; caller skips it
	// silently.
	PriorDuplicate
	// RunDuplicate: seen earlier in this run; caller keeps it but
	// flags it.
	RunDuplicate
)

// Index tracks prior keys (read-only, loaded once) and the keys
// accepted so far in the current run.
type Index struct {
	prior map[Key]struct{}
	run   map[Key]struct{}
}

func NewIndex(prior map[Key]struct{}) *Index {
	if prior == nil {
		prior = map[Key]struct{}{}
	}
	return &Index{prior: prior, run: map[Key]struct{}{}}
}

// Classify never mutates the index; call Remember after the record is
// actually accepted.
func (ix *Index) Classify(k Key) Class {
	if !k.Valid() {
		return New
	}
	if _, ok := ix.prior[k]; ok {
		return PriorDuplicate
	}
	if _, ok := ix.run[k]; ok {
		return RunDuplicate
	}
	return New
}

// Remember records an accepted key for same-run dedupe. Invalid keys
// are ignored.
func (ix *Index) Remember(k Key) {
	if k.Valid() {
		ix.run[k] = struct{}{}
	}
}

// PriorCount reports how many keys were seeded from prior output.
func (ix *Index) PriorCount() int { return len(ix.prior) }
