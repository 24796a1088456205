package streamjsonlint

import (
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("streamjsonlint", New)
}

type plugin struct{}

// New returns the golangci-lint module plugin. It takes no settings.
func New(any) (register.LinterPlugin, error) {
	return &plugin{}, nil
}

func (*plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{Analyzer}, nil
}

func (*plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
