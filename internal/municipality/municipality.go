// Package municipality holds the Osaka municipality reference table and the
// dataset naming convention used for scraped files.
package municipality

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// VoteType distinguishes the two election kinds held per municipality.
type VoteType string

const (
	VoteTypeMayor    VoteType = "a" // 首長選挙
	VoteTypeAssembly VoteType = "b" // 議員選挙
)

// Label returns the Japanese name of the election kind.
func (v VoteType) Label() string {
	switch v {
	case VoteTypeMayor:
		return "首長選挙"
	case VoteTypeAssembly:
		return "議員選挙"
	default:
		return ""
	}
}

var names = map[string]string{
	"oosk": "大阪市", "ski": "堺市", "tynk": "豊中市", "suita": "吹田市", "tktk": "高槻市",
	"hrkt": "枚方市", "yo": "八尾市", "nygw": "寝屋川市", "hoska": "東大阪市", "kswd": "岸和田市",
	"ikd": "池田市", "izmot": "泉大津市", "kizk": "貝塚市", "mrgt": "守口市", "ibrk": "茨木市",
	"dit": "大東市", "izmi": "和泉市", "mno": "箕面市", "kswr": "柏原市", "hbkn": "羽曳野市",
	"kdma": "門真市", "stt": "摂津市", "tkis": "高石市", "fuji": "藤井寺市", "sennan": "泉南市",
	"sijo": "四條畷市", "kata": "交野市", "osksa": "大阪狭山市", "hannan": "阪南市", "izmsn": "泉佐野市",
	"tdbys": "富田林市", "kwtngn": "河内長野市", "mtbr": "松原市", "smam": "島本町", "tyn": "豊能町",
	"nose": "能勢町", "tdok": "忠岡町", "kuma": "熊取町", "tjr": "田尻町", "mski": "岬町",
	"tis": "太子町", "kanan": "河南町", "chyaksk": "千早赤阪村",
}

// Name returns the municipality name for code.
func Name(code string) (string, bool) {
	n, ok := names[code]
	return n, ok
}

// Codes returns all known codes in sorted order.
func Codes() []string {
	out := make([]string, 0, len(names))
	for c := range names {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Dataset identifies one scraped table: <code>[_a|_b]_<year>, e.g. ski_2023
// or oosk_b_2019.
type Dataset struct {
	Code     string
	VoteType VoteType // empty when the name carries no type
	Year     int
}

var reDataset = regexp.MustCompile(`^([a-z]+)(?:_([ab]))?_(\d{4})$`)

// ParseDataset parses a dataset name. Unknown municipality codes are not an
// error; use Known to check them.
func ParseDataset(name string) (Dataset, error) {
	m := reDataset.FindStringSubmatch(name)
	if m == nil {
		return Dataset{}, fmt.Errorf("dataset name %q: want <code>[_a|_b]_<year>", name)
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset name %q: %w", name, err)
	}
	return Dataset{Code: m[1], VoteType: VoteType(m[2]), Year: year}, nil
}

// Known reports whether the dataset's code is in the reference table.
func (d Dataset) Known() bool {
	_, ok := names[d.Code]
	return ok
}

// Name returns the municipality name, or the code when unknown.
func (d Dataset) Name() string {
	if n, ok := names[d.Code]; ok {
		return n
	}
	return d.Code
}

// String formats the dataset back into its file name form.
func (d Dataset) String() string {
	if d.VoteType == "" {
		return fmt.Sprintf("%s_%04d", d.Code, d.Year)
	}
	return fmt.Sprintf("%s_%s_%04d", d.Code, d.VoteType, d.Year)
}

// GroupKey returns the merged-file key <code>_<type>.
func (d Dataset) GroupKey() string {
	vt := d.VoteType
	if vt == "" {
		vt = VoteTypeMayor
	}
	return d.Code + "_" + string(vt)
}
