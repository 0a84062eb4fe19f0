package preprocess

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/imaging"
)

var pdfMagic = []byte("%PDF-")

// Detect classifies an upload by its leading bytes. File names and declared
// content types are never trusted.
func Detect(buf []byte) (string, error) {
	if len(buf) == 0 {
		return "", fmt.Errorf("%w: empty upload", common.ErrUnsupportedFormat)
	}
	head := buf
	if len(head) > 1024 {
		head = head[:1024]
	}
	// PDF allows up to 1KB of junk before the header.
	if bytes.Contains(head, pdfMagic) {
		return constants.PDF, nil
	}
	if isHEIC(buf) {
		return constants.HEIC, nil
	}
	if _, ok := imaging.Sniff(buf); ok {
		return constants.IMAGE, nil
	}
	ct := http.DetectContentType(buf)
	return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, strings.SplitN(ct, ";", 2)[0])
}

// isHEIC checks the ISO-BMFF ftyp box for a HEIC/HEIF brand.
func isHEIC(buf []byte) bool {
	if len(buf) < 12 || string(buf[4:8]) != "ftyp" {
		return false
	}
	if _, ok := constants.HEICBrands[string(buf[8:12])]; ok {
		return true
	}
	// compatible brands follow the minor version
	end := len(buf)
	if boxLen := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3]); boxLen >= 16 && boxLen < end {
		end = boxLen
	}
	for i := 16; i+4 <= end; i += 4 {
		if _, ok := constants.HEICBrands[string(buf[i:i+4])]; ok {
			return true
		}
	}
	return false
}
