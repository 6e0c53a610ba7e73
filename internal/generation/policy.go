package generation

import (
	"fmt"
	"time"
)

// Kind selects the generation slot and its polling policy.
type Kind string

const (
	KindImage Kind = "image"
	KindModel Kind = "model"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindModel:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown generation kind %q", s)
}

// title is the capitalised label used in progress messages.
func (k Kind) title() string {
	switch k {
	case KindImage:
		return "Image"
	case KindModel:
		return "Model"
	}
	return string(k)
}

// Policy bounds one polling loop. A zero MaxPolls or Timeout disables
// that bound.
type Policy struct {
	Interval time.Duration
	Timeout  time.Duration
	MaxPolls int
}

var policies = map[Kind]Policy{
	KindImage: {Interval: time.Second, Timeout: 5 * time.Minute, MaxPolls: 300},
	KindModel: {Interval: 5 * time.Second, Timeout: 15 * time.Minute, MaxPolls: 180},
}

func PolicyFor(k Kind) Policy {
	return policies[k]
}
