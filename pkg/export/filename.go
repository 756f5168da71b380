package export

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/strftime"
)

// fileStamp formats the creation time embedded in export file names.
var fileStamp = func() *strftime.Strftime {
	p, err := strftime.New("%d_%m_%Y_%H_%M_%S")
	if err != nil {
		panic(err)
	}
	return p
}()

// FileName returns a unique name for an export file:
// <kind>_data_<DD_MM_YYYY_HH_MM_SS>_<uuid>.<ext>, with now in UTC.
func FileName(kind TargetKind, fileType FileType, now time.Time) string {
	return fmt.Sprintf("%s_data_%s_%s.%s",
		kind, fileStamp.FormatString(now.UTC()), uuid.New().String(), fileType.Extension())
}
