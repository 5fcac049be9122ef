package reconcile

import (
	"strings"

	"github.com/sgryjp/cldb/internal/equipment"
)

// Inferred keywords.
const (
	KeywordZoom       = "zoom"
	KeywordPrime      = "prime"
	KeywordMacro      = "macro"
	KeywordWideAngle  = "wide-angle"
	KeywordTelephoto  = "telephoto"
	KeywordMirrorless = "mirrorless"
	KeywordSLR        = "slr"
)

const (
	// wideAngleMaxFocal is the longest focal length (mm) still called wide-angle.
	wideAngleMaxFocal = 24
	// telephotoMinFocal is the shortest focal length (mm) called telephoto.
	telephotoMinFocal = 135
	// macroProximityFactor bounds the minimum focus distance of a macro lens
	// to this multiple of its shortest focal length.
	macroProximityFactor = 4
)

var mountKinds = map[string]string{
	"Nikon Z": KeywordMirrorless,
	"Sony E":  KeywordMirrorless,
	"Nikon F": KeywordSLR,
	"Sony A":  KeywordSLR,
}

// InferKeywords derives keywords from the attributes of a record.
func InferKeywords(rec equipment.Record) equipment.Keywords {
	switch rec.Category {
	case equipment.CategoryLens:
		return lensKeywords(rec)
	case equipment.CategoryCamera:
		if kw, ok := mountKinds[rec.Text(equipment.AttrMount)]; ok {
			return equipment.Keywords{kw}
		}
	}
	return nil
}

func lensKeywords(rec equipment.Record) equipment.Keywords {
	var kws equipment.Keywords

	minFocal, hasMin := rec.Number(equipment.AttrMinFocalLength)
	maxFocal, hasMax := rec.Number(equipment.AttrMaxFocalLength)
	if hasMin && hasMax {
		if minFocal == maxFocal {
			kws = append(kws, KeywordPrime)
		} else {
			kws = append(kws, KeywordZoom)
		}
	}
	if hasMin && minFocal <= wideAngleMaxFocal {
		kws = append(kws, KeywordWideAngle)
	}
	if hasMax && maxFocal >= telephotoMinFocal {
		kws = append(kws, KeywordTelephoto)
	}
	if isMacro(rec, minFocal, hasMin) {
		kws = append(kws, KeywordMacro)
	}

	return kws.Union()
}

// isMacro compares against the wide end, where zooms reach their closest focus.
func isMacro(rec equipment.Record, minFocal float64, hasMin bool) bool {
	name := strings.ToLower(rec.Name)
	if strings.Contains(name, "micro") || strings.Contains(name, "macro") {
		return true
	}
	distance, ok := rec.Number(equipment.AttrMinFocusDistance)
	return ok && hasMin && distance <= minFocal*macroProximityFactor
}
