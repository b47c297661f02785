package sport

import "fmt"

// Sport is an upstream league (NBA, NFL, ...) that projections are published under.
type Sport struct {
	ID       int64
	Name     string
	Category string
	Active   bool
}

func (s Sport) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("sport id must be greater than zero")
	}
	if s.Name == "" {
		return fmt.Errorf("sport name is required")
	}

	return nil
}

// UnknownName is used when neither the upstream nor the static table knows a sport.
const UnknownName = "Unknown"

var knownNames = map[int64]string{
	2:  "NFL",
	3:  "MLB",
	4:  "NHL",
	5:  "PGA",
	7:  "NBA",
	9:  "Soccer",
	10: "UFC/MMA",
	12: "Tennis",
	19: "WNBA",
}

// NameByID returns the well-known display name for a sport id, or UnknownName.
func NameByID(id int64) string {
	if name, ok := knownNames[id]; ok {
		return name
	}
	return UnknownName
}
