package container

import (
	"encoding/json"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

func marshalResult(result pipeline.RunResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

func marshalResults(results *pipeline.RunResults) ([]byte, error) {
	return json.MarshalIndent(results, "", "  ")
}
