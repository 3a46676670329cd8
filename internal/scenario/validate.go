package scenario

import (
	"fmt"
	"strings"
)

// Counts are the entity totals of a scenario.
type Counts struct {
	Sites     int `json:"sites"`
	Buildings int `json:"buildings"`
	Floors    int `json:"floors"`
	Rooms     int `json:"rooms"`
	Gateways  int `json:"gateways"`
	Devices   int `json:"devices"`
}

// Report is the outcome of Validate.
type Report struct {
	Counts   Counts
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were found.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a passing report, otherwise ErrValidationFailed with
// every error listed.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(r.Errors, "; "))
}

// CountEntities walks the hierarchy and totals every entity kind.
// Devices are counted from each gateway's declared count.
func (s *Scenario) CountEntities() Counts {
	var c Counts
	if s.Site.Name != "" {
		c.Sites = 1
	}
	for _, b := range s.Buildings {
		c.Buildings++
		for _, f := range b.Floors {
			c.Floors++
			for _, r := range f.Rooms {
				c.Rooms++
				for _, g := range r.Gateways {
					c.Gateways++
					c.Devices += g.Devices.Count
				}
			}
		}
	}
	return c
}

// Validate checks hierarchy rules.
//
// Errors: a room without exactly one gateway, a negative device count.
// Warnings: declared totals that disagree with the hierarchy, and device
// ranges whose start..end span disagrees with count.
func (s *Scenario) Validate() Report {
	r := Report{Counts: s.CountEntities()}

	declared := []struct {
		name             string
		declared, actual int
	}{
		{"sites", s.Totals.Sites, r.Counts.Sites},
		{"buildings", s.Totals.Buildings, r.Counts.Buildings},
		{"floors", s.Totals.Floors, r.Counts.Floors},
		{"rooms", s.Totals.Rooms, r.Counts.Rooms},
		{"gateways", s.Totals.Gateways, r.Counts.Gateways},
		{"devices", s.Totals.Devices, r.Counts.Devices},
	}
	for _, d := range declared {
		if d.declared != 0 && d.declared != d.actual {
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("%s: declared %d, actual %d", d.name, d.declared, d.actual))
		}
	}

	for _, b := range s.Buildings {
		for _, f := range b.Floors {
			for _, room := range f.Rooms {
				if n := len(room.Gateways); n != 1 {
					r.Errors = append(r.Errors,
						fmt.Sprintf("room %q: %d gateways (must have exactly 1)", room.Name, n))
				}
				for _, g := range room.Gateways {
					d := g.Devices
					if d.Count < 0 {
						r.Errors = append(r.Errors,
							fmt.Sprintf("gateway %q: negative device count %d", g.Name, d.Count))
						continue
					}
					if d.End != nil && d.Size() != d.Count {
						r.Warnings = append(r.Warnings,
							fmt.Sprintf("gateway %q: range %d..%d holds %d devices, count is %d",
								g.Name, d.Start, *d.End, d.Size(), d.Count))
					}
				}
			}
		}
	}
	return r
}
