package normalization

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"trade-leaderboard/internal/domain"
)

// ErrUnknownPayload marks a trade history that is neither structured nor text.
var ErrUnknownPayload = errors.New("unknown trade history payload")

// literalRewriter maps the source's quoting and literal vocabulary onto JSON.
var literalRewriter = strings.NewReplacer(
	"'", `"`,
	"True", "true",
	"False", "false",
	"None", "null",
)

// ParseHistory decodes one trade history payload.
//   - structured: returned unchanged
//   - text: quotes and True/False/None rewritten, then decoded as JSON
//   - anything else: ErrUnknownPayload
//
// Decode failures are logged and returned; the caller drops the entry.
func (n *Normalizer) ParseHistory(accountID string, h domain.TradeHistory) ([]domain.RawTrade, error) {
	switch h.Kind {
	case domain.HistoryStructured:
		return h.Items, nil
	case domain.HistoryText:
		items, err := decodeText(h.Text)
		if err != nil {
			n.logger.Warn("parse trade history",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
			return nil, err
		}
		return items, nil
	default:
		n.logger.Debug("skip trade history with unknown payload", zap.String("account_id", accountID))
		return nil, ErrUnknownPayload
	}
}

func decodeText(text string) ([]domain.RawTrade, error) {
	var items []domain.RawTrade
	if err := json.Unmarshal([]byte(literalRewriter.Replace(text)), &items); err != nil {
		return nil, err
	}
	return items, nil
}
