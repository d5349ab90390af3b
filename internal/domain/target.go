package domain

// Target is what a jar URL points at: an archive and, for extraction, a member.
type Target struct {
	Path      string
	Member    string
	HasMember bool
}

// Mode returns "extract" when a member is named, otherwise "list".
func (t Target) Mode() string {
	if t.HasMember {
		return ModeExtract
	}
	return ModeList
}

const (
	ModeList    = "list"
	ModeExtract = "extract"
)

// Entry is one parsed row of the tool's verbose table of contents.
type Entry struct {
	Size string
	Date string
	Name string
}
