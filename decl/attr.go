package decl

// MetaItem is the value of an attribute: a bare word, a name=value
// pair, or a named list of nested items.
type MetaItem interface {
	isMetaItem()
	// MetaName returns the item's leading name.
	MetaName() string
}

// MetaWord is an attribute like `#[inline]`.
type MetaWord struct {
	Name string
}

// MetaNameValue is an attribute like `#[doc = "..."]`.
type MetaNameValue struct {
	Name  string
	Value string
}

// MetaList is an attribute like `#[cfg(a, b(c))]`.
type MetaList struct {
	Name  string
	Items []MetaItem
}

func (MetaWord) isMetaItem()      {}
func (MetaNameValue) isMetaItem() {}
func (MetaList) isMetaItem()      {}

func (m MetaWord) MetaName() string      { return m.Name }
func (m MetaNameValue) MetaName() string { return m.Name }
func (m MetaList) MetaName() string      { return m.Name }

// Attribute is one attribute attached to a declaration.
type Attribute struct {
	// IsDocComment marks attributes synthesized from doc comments.
	IsDocComment bool
	Meta         MetaItem
}

// RequestsInline reports whether the attribute set asks for the body to
// be exported for cross-unit inlining. `#[inline(never)]` does not.
func RequestsInline(attrs []Attribute) bool {
	for _, a := range attrs {
		switch m := a.Meta.(type) {
		case MetaWord:
			if m.Name == "inline" {
				return true
			}
		case MetaList:
			if m.Name != "inline" {
				continue
			}
			never := false
			for _, it := range m.Items {
				if it.MetaName() == "never" {
					never = true
				}
			}
			if !never {
				return true
			}
		}
	}
	return false
}

// Stability records the stability promise attached to a declaration.
// A nil *Stability means no promise was made.
type Stability struct {
	Level      string // "stable", "unstable" or "deprecated"
	Feature    string
	Since      string
	Deprecated string
	Reason     string
}
