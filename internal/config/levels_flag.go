package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// LevelsFlag parses "low,high" into quantile levels.
type LevelsFlag struct {
	Levels *domain.Levels
}

var _ pflag.Value = (*LevelsFlag)(nil)

func (f *LevelsFlag) String() string {
	if f.Levels == nil {
		return ""
	}
	return strconv.FormatFloat(f.Levels.Low, 'g', -1, 64) + "," + strconv.FormatFloat(f.Levels.High, 'g', -1, 64)
}

func (f *LevelsFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("expected low,high got %q", s)
	}

	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return fmt.Errorf("low level: %w", err)
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fmt.Errorf("high level: %w", err)
	}

	l := domain.Levels{Low: low, High: high}
	if err := l.Validate(); err != nil {
		return err
	}
	*f.Levels = l
	return nil
}

func (f *LevelsFlag) Type() string {
	return "levels"
}
