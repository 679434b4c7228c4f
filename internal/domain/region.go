package domain

// DatasetKey is the two-digit region code that partitions every dataset.
// Japanese prefecture codes run "01" through "47".
type DatasetKey string

// Valid reports whether the key is a well-formed region code.
func (k DatasetKey) Valid() bool {
	if len(k) != 2 {
		return false
	}
	if k[0] < '0' || k[0] > '9' || k[1] < '0' || k[1] > '9' {
		return false
	}
	n := int(k[0]-'0')*10 + int(k[1]-'0')
	return n >= 1 && n <= 47
}

// PrefixPattern returns the SQL LIKE pattern that matches every row
// belonging to this key. Municipality and facility codes embed the region
// code as their leading digits.
func (k DatasetKey) PrefixPattern() string {
	return string(k) + "%"
}

// NewDatasetKey validates a raw code string.
func NewDatasetKey(code string) (DatasetKey, error) {
	k := DatasetKey(code)
	if !k.Valid() {
		return "", &ValidationError{
			Field:      "code",
			Value:      code,
			Constraint: `"01".."47"`,
			Message:    "region code must be a two-digit prefecture code",
			Err:        ErrInvalidRegionCode,
		}
	}
	return k, nil
}
