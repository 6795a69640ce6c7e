package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	kcerrors "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// InstallWarningSink routes pipeline warnings (pkg/errors.Warn) through a
// zerolog logger so that warning types carrying MarshalZerologObject emit
// their structured fields. Passing nil writes to stderr.
func InstallWarningSink(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	kcerrors.SetZerologWarnFunc(func(warning error) {
		event := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event = event.EmbedObject(obj)
		}
		event.Msg(warning.Error())
	})
}
