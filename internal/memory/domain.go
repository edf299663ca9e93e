package memory

import (
	"encoding/json"
	"fmt"

	merr "github.com/objones25/mnemo/pkg/errors"
)

type domainKind int

const (
	domainGeneral domainKind = iota
	domainCode
	domainDocumentation
	domainConversation
	domainFilesystem
	domainWebSearch
	domainDataset
	domainResearch
	domainCustom
)

// Domain classifies a context entry. The set is closed except for one
// extension variant carrying an arbitrary name; values are comparable and
// usable as map keys.
type Domain struct {
	kind   domainKind
	custom string
}

var (
	DomainGeneral       = Domain{kind: domainGeneral}
	DomainCode          = Domain{kind: domainCode}
	DomainDocumentation = Domain{kind: domainDocumentation}
	DomainConversation  = Domain{kind: domainConversation}
	DomainFilesystem    = Domain{kind: domainFilesystem}
	DomainWebSearch     = Domain{kind: domainWebSearch}
	DomainDataset       = Domain{kind: domainDataset}
	DomainResearch      = Domain{kind: domainResearch}
)

// CustomDomain returns the extension variant for an arbitrary domain name.
func CustomDomain(name string) Domain {
	return Domain{kind: domainCustom, custom: name}
}

// IsCustom reports whether d is the extension variant, returning its name.
func (d Domain) IsCustom() (string, bool) {
	if d.kind == domainCustom {
		return d.custom, true
	}
	return "", false
}

func (d Domain) String() string {
	switch d.kind {
	case domainGeneral:
		return "general"
	case domainCode:
		return "code"
	case domainDocumentation:
		return "documentation"
	case domainConversation:
		return "conversation"
	case domainFilesystem:
		return "filesystem"
	case domainWebSearch:
		return "web_search"
	case domainDataset:
		return "dataset"
	case domainResearch:
		return "research"
	case domainCustom:
		return d.custom
	default:
		return "general"
	}
}

// ParseDomain maps a wire name onto a Domain. Unrecognized names become the
// custom variant rather than an error, matching the open classification set.
func ParseDomain(s string) Domain {
	switch s {
	case "", "general":
		return DomainGeneral
	case "code":
		return DomainCode
	case "documentation":
		return DomainDocumentation
	case "conversation":
		return DomainConversation
	case "filesystem":
		return DomainFilesystem
	case "web_search":
		return DomainWebSearch
	case "dataset":
		return DomainDataset
	case "research":
		return DomainResearch
	default:
		return CustomDomain(s)
	}
}

// MarshalJSON encodes builtin domains as bare strings and the custom variant
// as {"custom": name}, so custom names can never shadow builtin ones.
func (d Domain) MarshalJSON() ([]byte, error) {
	if name, ok := d.IsCustom(); ok {
		return json.Marshal(map[string]string{"custom": name})
	}
	return json.Marshal(d.String())
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = ParseDomain(s)
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "decoding domain")
	}
	name, ok := obj["custom"]
	if !ok {
		return merr.Errorf(merr.CodeSerialization, "domain object missing custom key")
	}
	*d = CustomDomain(name)
	return nil
}

// ScreeningStatus records the security screening outcome for an entry.
type ScreeningStatus int

const (
	ScreeningUnscreened ScreeningStatus = iota
	ScreeningSafe
	ScreeningFlagged
	ScreeningBlocked
	ScreeningPending
)

func (s ScreeningStatus) String() string {
	switch s {
	case ScreeningUnscreened:
		return "unscreened"
	case ScreeningSafe:
		return "safe"
	case ScreeningFlagged:
		return "flagged"
	case ScreeningBlocked:
		return "blocked"
	case ScreeningPending:
		return "pending"
	default:
		return fmt.Sprintf("screening(%d)", int(s))
	}
}

// ParseScreeningStatus maps a wire name onto a status; unknown names are an
// invalid-query error so a typo can never silently unscreen an entry.
func ParseScreeningStatus(s string) (ScreeningStatus, error) {
	switch s {
	case "unscreened":
		return ScreeningUnscreened, nil
	case "safe":
		return ScreeningSafe, nil
	case "flagged":
		return ScreeningFlagged, nil
	case "blocked":
		return ScreeningBlocked, nil
	case "pending":
		return ScreeningPending, nil
	default:
		return ScreeningUnscreened, merr.Errorf(merr.CodeQueryInvalid, "unknown screening status %q", s)
	}
}

func (s ScreeningStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ScreeningStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "decoding screening status")
	}
	parsed, err := ParseScreeningStatus(raw)
	if err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "decoding screening status")
	}
	*s = parsed
	return nil
}
