// Package encoding decodes the byte strings stored in compiled script string
// tables. Retail scripts are UTF-8 or plain ASCII; localized builds and
// community tools have shipped Windows-1252 and East Asian code pages.
package encoding

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Type represents a character encoding of script string-table text.
type Type int

const (
	UTF8        Type = iota // UTF-8 / ASCII - retail PC scripts
	Windows1252             // Western European localized builds
	ShiftJIS                // Japanese (CP932)
	GBK                     // Simplified Chinese (CP936)
	EUCKR                   // Korean (CP949)
	Other                   // Unknown/unsupported
)

func (t Type) String() string {
	switch t {
	case UTF8:
		return "UTF-8"
	case Windows1252:
		return "Windows-1252"
	case ShiftJIS:
		return "Shift_JIS"
	case GBK:
		return "GBK"
	case EUCKR:
		return "EUC-KR"
	default:
		return "Other"
	}
}

// Parse returns the encoding type from a string name.
func Parse(name string) Type {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF8", "UTF-8", "ASCII":
		return UTF8
	case "WINDOWS-1252", "WINDOWS1252", "CP1252", "LATIN1":
		return Windows1252
	case "SHIFTJIS", "SHIFT_JIS", "SHIFT-JIS", "SJIS", "CP932":
		return ShiftJIS
	case "GBK", "CP936", "GB2312":
		return GBK
	case "EUC-KR", "EUC_KR", "EUCKR", "CP949":
		return EUCKR
	default:
		return Other
	}
}

func (t Type) transformers() (dec, enc transform.Transformer, err error) {
	switch t {
	case UTF8:
		return nil, nil, nil
	case Windows1252:
		return charmap.Windows1252.NewDecoder(), charmap.Windows1252.NewEncoder(), nil
	case ShiftJIS:
		return japanese.ShiftJIS.NewDecoder(), japanese.ShiftJIS.NewEncoder(), nil
	case GBK:
		return simplifiedchinese.GBK.NewDecoder(), simplifiedchinese.GBK.NewEncoder(), nil
	case EUCKR:
		return korean.EUCKR.NewDecoder(), korean.EUCKR.NewEncoder(), nil
	}
	return nil, nil, errors.Errorf("unsupported encoding: %v", t)
}

// ToUTF8 converts a byte string from the given encoding to UTF-8.
func ToUTF8(data []byte, enc Type) (string, error) {
	dec, _, err := enc.transformers()
	if err != nil {
		return "", err
	}
	if dec == nil {
		return string(data), nil
	}
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", errors.Wrapf(err, "decoding %v", enc)
	}
	return string(out), nil
}

// FromUTF8String converts a UTF-8 string to the given encoding.
func FromUTF8String(text string, enc Type) ([]byte, error) {
	_, encoder, err := enc.transformers()
	if err != nil {
		return nil, err
	}
	if encoder == nil {
		return []byte(text), nil
	}
	result, _, err := transform.String(encoder, text)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %v", enc)
	}
	return []byte(result), nil
}
