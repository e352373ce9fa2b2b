package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/paiban/visitplan/pkg/model"
)

// RowHeaders 导出表头
var RowHeaders = []string{"date", "slot", "point_id", "address", "district", "category"}

// WriteRows 将访问明细写为 CSV
func WriteRows(w io.Writer, rows []model.VisitRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(RowHeaders); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, r := range rows {
		record := []string{r.Date, strconv.Itoa(r.Slot), r.PointID, r.Address, r.District, r.Category}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
