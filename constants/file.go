package constants

// Upload formats recognised by the verification pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	HEIC  = "HEIC"
)

// HEICBrands are the ISO-BMFF ftyp major brands treated as HEIC/HEIF.
var HEICBrands = map[string]struct{}{
	"heic": {},
	"heix": {},
	"hevc": {},
	"heim": {},
	"heis": {},
	"mif1": {},
	"msf1": {},
}
