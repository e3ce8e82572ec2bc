package properties

import "errors"

// ErrSerialize reports that a record could not be encoded as YAML.
// This is the only failure Generate can return; Parse, Validate, and
// Merge never fail.
var ErrSerialize = errors.New("frontmatter cannot be serialized")
