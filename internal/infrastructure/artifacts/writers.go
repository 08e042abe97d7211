package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/plasmodock/plasmodock/internal/domain/process"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// csvHeader is the fixed first row of the CSV ledger.  It is written
// even when the run produced no rows at all.
var csvHeader = []string{
	"PROCESS_ID", "TYPE", "RECEPTOR_REC", "LIGAND_FILE",
	"BEST_BINDING_ENERGY", "BEST_REFERENCE_RMSD", "BEST_RUN", "ERROR",
}

// jsonStatistics extends the ledger counters with the rendered success
// rate the aggregate payload carries.
type jsonStatistics struct {
	process.Statistics
	SuccessRate string `json:"success_rate"`
}

type jsonReport struct {
	OK            bool                     `json:"ok"`
	ProcessID     uuid.UUID                `json:"process_id"`
	Type          string                   `json:"type"`
	StatusMessage string                   `json:"status_message"`
	ElapsedSec    float64                  `json:"elapsed_seconds"`
	Statistics    jsonStatistics           `json:"statistics"`
	Receptors     []process.ReceptorReport `json:"macromolecules"`
}

// ResultPayload renders the aggregate run record, one block per
// receptor in the order they were processed.  The same bytes land in
// resultado.json and on the process row.
func ResultPayload(p *process.Process, res process.Result) ([]byte, error) {
	report := jsonReport{
		OK:            res.Statistics.Succeeded > 0,
		ProcessID:     p.ID,
		Type:          p.Type,
		StatusMessage: res.StatusMessage,
		ElapsedSec:    res.Elapsed.Round(time.Millisecond).Seconds(),
		Statistics: jsonStatistics{
			Statistics:  res.Statistics,
			SuccessRate: res.Statistics.SuccessRatePercent(),
		},
		Receptors: res.Receptors,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding result JSON")
	}
	return data, nil
}

// WriteResultJSON writes an already-rendered aggregate record as
// resultado.json.
func (l Layout) WriteResultJSON(payload []byte) (string, error) {
	path := l.ResultJSONPath()
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "writing "+path)
	}
	return path, nil
}

// WriteResultCSV renders the run ledger as resultado.csv, one row per
// receptor/ligand pair in ledger order, semicolon separated.  Rows that
// failed leave the result columns empty and fill ERROR instead.
func (l Layout) WriteResultCSV(outcomes []process.Outcome) (string, error) {
	path := l.ResultCSVPath()
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "creating "+path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(csvHeader); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "writing CSV header")
	}
	for _, o := range outcomes {
		row := []string{o.ProcessID.String(), o.Type, o.ReceptorRec, o.LigandFile, "", "", "", ""}
		if o.Failed() {
			row[7] = o.Error
		} else {
			row[4] = formatFloat(o.BestBindingEnergy)
			row[5] = formatFloat(o.BestReferenceRMSD)
			row[6] = strconv.Itoa(o.BestRun)
		}
		if err := w.Write(row); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeSerialization, "writing CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "flushing CSV")
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
