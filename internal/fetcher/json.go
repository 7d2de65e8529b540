package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/civicworks/projectwatch/internal/model"
)

// decodeRecords reads a JSON record collection: either a bare array of
// objects or an envelope with a "records" or "data" array.
func decodeRecords(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "json: read body")
	}

	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Records []model.RawRecord `json:"records"`
		Data    []model.RawRecord `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, eris.Wrap(err, "json: decode records")
	}
	if envelope.Records != nil {
		return envelope.Records, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return nil, eris.New("json: no records found in response")
}

// decodeSubmission reads a manual submission file: a single record object or
// an array of records.
func decodeSubmission(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "json: read submission")
	}

	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var single model.RawRecord
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, eris.Wrap(err, "json: decode submission")
	}
	return []model.RawRecord{single}, nil
}
