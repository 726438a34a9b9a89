package inno

import (
	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/majewsky/wininstall-analyze/model"
)

// fieldReader decodes the decompressed header's `{u32 length, length
// bytes}` field sequence (spec.md §4.5 "Header deserialization"),
// where a zero length means the field is absent.
type fieldReader struct {
	c *binutil.Cursor
}

func newFieldReader(data []byte) *fieldReader {
	return &fieldReader{c: binutil.NewCursor(data)}
}

// Field reads the next length-prefixed field as a string.
func (r *fieldReader) Field() (string, error) {
	n, err := r.c.U32()
	if err != nil {
		return "", model.NewErr(decoderName, model.KindBounds, errShort("header field length"))
	}
	if n == 0 {
		return "", nil
	}
	b, err := r.c.Bytes(int(n))
	if err != nil {
		return "", model.NewErr(decoderName, model.KindBounds, errShort("header field data"))
	}
	return string(b), nil
}

// headerFields is the non-exhaustive, version-gated ordered subset of
// Inno's setup header that feeds the common Installer shape (spec.md
// §4.5's field list).
type headerFields struct {
	AppName                            string
	AppVersionedName                   string
	AppID                              string
	AppCopyright                       string
	AppPublisher                       string
	AppPublisherURL                    string
	AppSupportPhone                    string
	AppSupportURL                      string
	AppUpdatesURL                      string
	AppVersion                         string
	DefaultDirName                     string
	DefaultGroupName                   string
	BaseFilename                       string
	UninstallName                      string
	UninstallIcon                      string
	AppMutex                           string
	AppReadmeFile                      string
	AppContact                         string
	AppComments                        string
	AppModifyPath                      string
	CloseApplicationsFilter            string
	SetupMutex                         string
	ArchitecturesAllowed               string
	ArchitecturesInstallIn64BitMode    string
	LicenseText                        string
	InfoBefore                         string
	InfoAfter                          string
	CompiledCode                       string
	PrivilegesRequiredOverridesAllowed string
}

// readHeaderFields reads the ordered field sequence documented in
// spec.md §4.5. Every field in the list is present in the stream for
// every supported version (a zero length simply yields an empty
// string); fields the spec marks with "?" are the ones whose presence
// is in practice version-gated, but the wire encoding does not vary —
// an absent field is indistinguishable from an empty one, which is
// exactly how every other length-prefixed field in this format works.
func readHeaderFields(data []byte) (*headerFields, error) {
	r := newFieldReader(data)
	var h headerFields
	fields := []*string{
		&h.AppName, &h.AppVersionedName, &h.AppID, &h.AppCopyright,
		&h.AppPublisher, &h.AppPublisherURL, &h.AppSupportPhone, &h.AppSupportURL,
		&h.AppUpdatesURL, &h.AppVersion, &h.DefaultDirName, &h.DefaultGroupName,
		&h.BaseFilename, &h.UninstallName, &h.UninstallIcon, &h.AppMutex,
		&h.AppReadmeFile, &h.AppContact, &h.AppComments, &h.AppModifyPath,
		&h.CloseApplicationsFilter, &h.SetupMutex, &h.ArchitecturesAllowed,
		&h.ArchitecturesInstallIn64BitMode, &h.LicenseText, &h.InfoBefore,
		&h.InfoAfter, &h.CompiledCode, &h.PrivilegesRequiredOverridesAllowed,
	}
	for _, dst := range fields {
		v, err := r.Field()
		if err != nil {
			// A field past the end of a shorter/older header's stream is
			// simply treated as absent, matching spec.md's "non-exhaustive
			// but ordered enumeration" over a version-gated field set.
			break
		}
		*dst = v
	}
	return &h, nil
}

// productCode implements spec.md §4.5 "Product code": a `{{`-prefixed
// app_id has one brace stripped and "_is1" appended.
func (h *headerFields) productCode() string {
	if h.AppID == "" {
		return ""
	}
	id := h.AppID
	if len(id) >= 2 && id[0] == '{' && id[1] == '{' {
		id = id[1:]
	}
	return id + "_is1"
}
