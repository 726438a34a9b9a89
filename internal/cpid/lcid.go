// Package cpid maps Windows LCIDs (as found in MSI's ProductLanguage
// summary property and NSIS/Inno language tables) to BCP-47 tags.
package cpid

// table only covers the LCIDs actually seen in installer metadata in
// the wild; an unknown LCID is not an error, the caller just omits the
// locale field (spec.md §4.3: "otherwise omitted").
var table = map[uint16]string{
	0x0409: "en-US",
	0x0809: "en-GB",
	0x0c09: "en-AU",
	0x1009: "en-CA",
	0x0407: "de-DE",
	0x0c07: "de-AT",
	0x0807: "de-CH",
	0x040c: "fr-FR",
	0x0c0c: "fr-CA",
	0x080c: "fr-BE",
	0x0410: "it-IT",
	0x0416: "pt-BR",
	0x0816: "pt-PT",
	0x040a: "es-ES",
	0x080a: "es-MX",
	0x0413: "nl-NL",
	0x0813: "nl-BE",
	0x041d: "sv-SE",
	0x0406: "da-DK",
	0x0414: "nb-NO",
	0x040b: "fi-FI",
	0x0415: "pl-PL",
	0x0405: "cs-CZ",
	0x040e: "hu-HU",
	0x0418: "ro-RO",
	0x0419: "ru-RU",
	0x0422: "uk-UA",
	0x041f: "tr-TR",
	0x0408: "el-GR",
	0x040d: "he-IL",
	0x0401: "ar-SA",
	0x0411: "ja-JP",
	0x0412: "ko-KR",
	0x0804: "zh-CN",
	0x0404: "zh-TW",
	0x041e: "th-TH",
	0x042a: "vi-VN",
	0x0421: "id-ID",
	0x042d: "eu-ES",
	0x041a: "hr-HR",
	0x081a: "sr-Latn-CS",
	0x041b: "sk-SK",
	0x0424: "sl-SI",
	0x0402: "bg-BG",
	0x0425: "et-EE",
	0x0426: "lv-LV",
	0x0427: "lt-LT",
	0x0000: "",
}

// ToBCP47 converts a Windows LCID to a BCP-47 language tag. ok is false
// for LCID 0 (neutral, "no locale") and for LCIDs not in the table.
func ToBCP47(lcid uint16) (tag string, ok bool) {
	if lcid == 0 {
		return "", false
	}
	tag, ok = table[lcid]
	if !ok || tag == "" {
		return "", false
	}
	return tag, true
}
