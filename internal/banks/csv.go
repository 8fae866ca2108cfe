package banks

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// WriteCSV writes the directory as id,name rows with a header.
func WriteCSV(w io.Writer, d *Directory) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "name"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, b := range d.All() {
		if err := cw.Write(marshalBank(b)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalBank(b model.BankRecord) []string {
	return []string{strconv.FormatInt(b.ID, 10), b.Name}
}
