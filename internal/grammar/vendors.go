package grammar

import "github.com/sgryjp/cldb/internal/equipment"

// Vendor keys used by the source catalog.
const (
	VendorNikon = "nikon"
	VendorSony  = "sony"
)

// Terminal marker found on teleconverter pages ("primary lens").
const markerPrimaryLens = "主レンズ"

var nikonMounts = []Term{
	{Contains: "Zマウント", Value: "Nikon Z"},
	{Contains: "Fマウント", Value: "Nikon F"},
}

// NikonLens recognizes the spec table of NIKKOR lens pages.
func NikonLens() *Grammar {
	return &Grammar{
		Vendor:   VendorNikon,
		Category: equipment.CategoryLens,
		Version:  Version,
		Rules: map[string]Rule{
			"型式": ClassifyRule{Attr: equipment.AttrMount, Terms: nikonMounts},
			"焦点距離": RangeRule{
				Min: equipment.AttrMinFocalLength,
				Max: equipment.AttrMaxFocalLength,
			},
			"最短撮影距離": CompositeMinRule{Attr: equipment.AttrMinFocusDistance},
			"最小絞り":   NumberRule{Attr: equipment.AttrMinFValue, Prefix: "f/"},
			"最大絞り":   NumberRule{Attr: equipment.AttrMaxFValue, Prefix: "f/"},
		},
		TerminalMarkers: []string{markerPrimaryLens},
	}
}

// NikonCamera recognizes the spec table of Nikon SLR and mirrorless camera pages.
func NikonCamera() *Grammar {
	return &Grammar{
		Vendor:   VendorNikon,
		Category: equipment.CategoryCamera,
		Version:  Version,
		Rules: map[string]Rule{
			"レンズマウント": ClassifyRule{Attr: equipment.AttrMount, Terms: nikonMounts},
			"撮像素子": ClassifyRule{Attr: equipment.AttrSize, Terms: []Term{
				{Contains: "FXフォーマット", Value: "35mm"},
				{Contains: "DXフォーマット", Value: "APS-C"},
			}},
		},
	}
}

// SonyCamera recognizes the spec table of Sony α camera pages.
func SonyCamera() *Grammar {
	return &Grammar{
		Vendor:   VendorSony,
		Category: equipment.CategoryCamera,
		Version:  Version,
		Rules: map[string]Rule{
			"レンズマウント": VocabularyRule{Attr: equipment.AttrMount, Terms: map[string]string{
				"Eマウント":    "Sony E",
				"ソニーEマウント": "Sony E",
				"Aマウント":    "Sony A",
				"ソニーAマウント": "Sony A",
			}},
			"撮像素子": ClassifyRule{Attr: equipment.AttrSize, Terms: []Term{
				{Contains: "35mmフルサイズ", Value: "35mm"},
				{Contains: "APS-C", Value: "APS-C"},
			}},
		},
	}
}
