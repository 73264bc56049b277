package location

// Location is a named coordinate pair.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"locationName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateFields holds the fields of a partial update. Nil fields are left unchanged.
type UpdateFields struct {
	Name      *string
	Latitude  *float64
	Longitude *float64
}

// Empty reports whether the update changes nothing.
func (u UpdateFields) Empty() bool {
	return u.Name == nil && u.Latitude == nil && u.Longitude == nil
}
