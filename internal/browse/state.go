package browse

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/filter"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	"github.com/utafrali/CatalogGo/pkg/pagination"
)

// State is one browsing session's search, selections and page. Transitions
// return a new State and never modify the receiver.
type State struct {
	Search        string   `json:"search"`
	Manufacturers []string `json:"manufacturers"`
	Distributors  []string `json:"distributors"`
	Page          int      `json:"page"`
}

// NewState builds a normalized state: the search is trimmed, selections drop
// blanks and duplicates, and pages are clamped to [1, pagination.MaxPage].
func NewState(search string, manufacturers, distributors []string, page int) State {
	return State{
		Search:        strings.TrimSpace(search),
		Manufacturers: normalizeSet(manufacturers),
		Distributors:  normalizeSet(distributors),
		Page:          pagination.ClampPage(page),
	}
}

func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func toggle(set []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return slices.Clone(set)
	}
	if i := slices.Index(set, value); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), value)
}

func (s State) with(search string, manufacturers, distributors []string) State {
	return NewState(search, manufacturers, distributors, 1)
}

func (s State) SetSearch(text string) State {
	return s.with(text, s.Manufacturers, s.Distributors)
}

func (s State) ToggleManufacturer(name string) State {
	return s.with(s.Search, toggle(s.Manufacturers, name), s.Distributors)
}

func (s State) ToggleDistributor(name string) State {
	return s.with(s.Search, s.Manufacturers, toggle(s.Distributors, name))
}

func (s State) SetManufacturers(names []string) State {
	return s.with(s.Search, names, s.Distributors)
}

func (s State) SetDistributors(names []string) State {
	return s.with(s.Search, s.Manufacturers, names)
}

// ClearSearch resets the text and keeps both selections.
func (s State) ClearSearch() State {
	return s.with("", s.Manufacturers, s.Distributors)
}

// ClearFilters resets both selections and keeps the text.
func (s State) ClearFilters() State {
	return s.with(s.Search, nil, nil)
}

func (s State) ClearAll() State {
	return s.with("", nil, nil)
}

// GoToPage is the only transition that keeps search and selections and
// moves the page.
func (s State) GoToPage(page int) State {
	return NewState(s.Search, s.Manufacturers, s.Distributors, page)
}

// HasActiveFilters reports whether a search text or any selection is set.
func (s State) HasActiveFilters() bool {
	return s.Search != "" || len(s.Manufacturers) > 0 || len(s.Distributors) > 0
}

// Validate rejects selections that cannot be expressed in a filter.
func (s State) Validate() error {
	for _, v := range slices.Concat(s.Manufacturers, s.Distributors) {
		if err := filter.ValidateValue(v); err != nil {
			return apperrors.InvalidInput(fmt.Sprintf("selection %q must not contain a backtick", v))
		}
	}
	return nil
}

// Filter builds the expression for the selections: manufacturers are
// OR-combined by equality, distributors by membership, and the two groups
// are AND-combined. No selection yields nil.
func (s State) Filter() filter.Expression {
	return filter.And(
		filter.Equals(domain.FieldManufacturerName, s.Manufacturers...),
		filter.Contains(domain.FieldDistributorNames, s.Distributors...),
	)
}

// Actions accepted by Apply.
const (
	ActionSetSearch          = "set_search"
	ActionClearSearch        = "clear_search"
	ActionClearFilters       = "clear_filters"
	ActionClearAll           = "clear_all"
	ActionToggleManufacturer = "toggle_manufacturer"
	ActionToggleDistributor  = "toggle_distributor"
	ActionSetManufacturers   = "set_manufacturers"
	ActionSetDistributors    = "set_distributors"
)

// Apply runs the named transition. An empty action returns s unchanged. The
// set_* actions take a comma-separated list, empty meaning none.
func (s State) Apply(action, value string) (State, error) {
	switch action {
	case "":
		return s, nil
	case ActionSetSearch:
		return s.SetSearch(value), nil
	case ActionClearSearch:
		return s.ClearSearch(), nil
	case ActionClearFilters:
		return s.ClearFilters(), nil
	case ActionClearAll:
		return s.ClearAll(), nil
	case ActionToggleManufacturer:
		return s.ToggleManufacturer(value), nil
	case ActionToggleDistributor:
		return s.ToggleDistributor(value), nil
	case ActionSetManufacturers:
		return s.SetManufacturers(splitList(value)), nil
	case ActionSetDistributors:
		return s.SetDistributors(splitList(value)), nil
	default:
		return s, apperrors.InvalidInput(fmt.Sprintf("unknown browse action %q", action))
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// FromQuery reads a state from q, manufacturers, distributors and page.
func FromQuery(v url.Values) State {
	return NewState(v.Get("q"), v["manufacturers"], v["distributors"], pagination.PageFromString(v.Get("page")))
}

// Query encodes s in the form FromQuery reads.
func (s State) Query() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set("q", s.Search)
	}
	for _, m := range s.Manufacturers {
		v.Add("manufacturers", m)
	}
	for _, d := range s.Distributors {
		v.Add("distributors", d)
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	return v
}
