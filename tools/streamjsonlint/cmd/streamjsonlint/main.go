package main

import (
	"github.com/deepankarm/streamjson/tools/streamjsonlint"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(streamjsonlint.Analyzer)
}
