package identity

import (
	"image"

	"epconvert/internal/logging"
	"epconvert/internal/template"
)

// Outcome describes what the resolver decided for an overlay.
type Outcome int

const (
	// OutcomeIdentified means a record was resolved for the overlay.
	OutcomeIdentified Outcome = iota
	// OutcomeStandardUnidentified means the overlay matches the standard
	// template but no identity was resolved; callers fall back to a
	// default templated config.
	OutcomeStandardUnidentified
	// OutcomeNonStandardUnidentified means the overlay is not the
	// standard template and no identity was resolved; callers fall back
	// to embedding the overlay as a plain image.
	OutcomeNonStandardUnidentified
)

// Resolution is the full result of resolving one overlay image.
type Resolution struct {
	Outcome Outcome
	Record  *Record
	RawText string
	// Exact is true when the record came from an exact name lookup rather
	// than a fuzzy candidate.
	Exact      bool
	IsStandard bool
	Score      float64
}

// Classifier decides whether an overlay matches the standard template.
type Classifier interface {
	Classify(img image.Image) template.Result
}

// TextExtractor recognizes the printed name on an overlay.
type TextExtractor interface {
	ExtractText(img image.Image) (string, error)
}

// ConfirmFunc is the disambiguation hook. It is called synchronously with
// the recognized text and the fuzzy candidates; a nil return means "skip".
type ConfirmFunc func(rawText string, candidates []Candidate) *Record

// Resolver composes template classification, text extraction, and index
// lookup into one decision per overlay.
type Resolver struct {
	classifier Classifier
	extractor  TextExtractor
	index      *Index
	threshold  int
	limit      int
	confirm    ConfirmFunc
}

// NewResolver wires a resolver. confirm may be nil; without it, the top
// fuzzy candidate is accepted automatically.
func NewResolver(classifier Classifier, extractor TextExtractor, index *Index, threshold, limit int, confirm ConfirmFunc) *Resolver {
	return &Resolver{
		classifier: classifier,
		extractor:  extractor,
		index:      index,
		threshold:  threshold,
		limit:      limit,
		confirm:    confirm,
	}
}

// ResolveOverlay classifies the decoded overlay, attempts text extraction
// regardless of the classification verdict, and resolves the recognized
// name. Recognition failures are never propagated; they degrade to an
// unidentified outcome that preserves the template verdict.
func (r *Resolver) ResolveOverlay(overlay image.Image) Resolution {
	cls := r.classifier.Classify(overlay)
	res := Resolution{IsStandard: cls.IsStandard, Score: cls.Score}

	text, err := r.extractor.ExtractText(overlay)
	if err != nil {
		logging.Debug("text extraction failed, treating as no text", "error", err)
		text = ""
	}
	res.RawText = text

	if text == "" {
		res.Outcome = r.unidentified(cls.IsStandard)
		return res
	}

	match := r.index.Resolve(text, r.threshold, r.limit)
	switch {
	case match.Exact:
		res.Outcome = OutcomeIdentified
		res.Record = match.Record
		res.Exact = true

	case len(match.Candidates) > 0:
		if r.confirm == nil {
			// Best effort without a confirmation channel.
			res.Outcome = OutcomeIdentified
			res.Record = match.Record
			break
		}
		if chosen := r.confirm(text, match.Candidates); chosen != nil {
			res.Outcome = OutcomeIdentified
			res.Record = chosen
		} else {
			res.Outcome = r.unidentified(cls.IsStandard)
		}

	default:
		res.Outcome = r.unidentified(cls.IsStandard)
	}

	return res
}

func (r *Resolver) unidentified(isStandard bool) Outcome {
	if isStandard {
		return OutcomeStandardUnidentified
	}
	return OutcomeNonStandardUnidentified
}
