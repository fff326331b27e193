package document

import "strings"

// CompanyEHI is the tenant code of Eastern Home Industries.
const CompanyEHI = "EHI"

var companyNames = map[string]string{
	CompanyEHI: "Eastern Home Industries",
}

// Directory maps tenant codes to display names on top of the built-in table.
type Directory map[string]string

// Name returns the display name for a tenant code. Unknown codes display as given.
func (d Directory) Name(code string) string {
	key := strings.ToUpper(strings.TrimSpace(code))
	if name, ok := d[key]; ok && name != "" {
		return name
	}
	if name, ok := companyNames[key]; ok {
		return name
	}
	return code
}

// CompanyName resolves a tenant code against the built-in table only.
func CompanyName(code string) string {
	return Directory(nil).Name(code)
}

// Branding resolves the display name and logo of a tenant. Both renderers
// resolve tenants through it so they agree.
type Branding struct {
	Names       Directory
	Logos       map[string]string
	DefaultLogo string
}

// Lookup returns the display name and logo path for a tenant code.
func (b Branding) Lookup(code string) (name, logo string) {
	name = b.Names.Name(code)
	logo = b.DefaultLogo
	if l, ok := b.Logos[strings.ToUpper(strings.TrimSpace(code))]; ok && l != "" {
		logo = l
	}
	return name, logo
}
