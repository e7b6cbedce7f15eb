package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"order-bot/project/domain"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// 値の入力形式（スプレッドシートの UI と同じ解釈）
const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
	pasteFormat      = "PASTE_FORMAT"
)

// updatedRangeRe は "Заказы!A5:AF6" のような追記範囲から行番号を取り出します
var updatedRangeRe = regexp.MustCompile(`![A-Z]+(\d+)(?::[A-Z]+(\d+))?$`)

// Repo は domain.OrderRepository の Google Sheets 実装です
// 1行目を列見出しとして扱い、2行目以降を注文として読み書きします
type Repo struct {
	svc            *sheets.Service
	spreadsheetID  string
	sheetName      string
	copyFormatting bool
	log            zerolog.Logger
}

// Option は Repo の設定です
type Option func(*Repo)

// WithCopyFormatting は追記した行に直前のデータ行の書式をコピーします
func WithCopyFormatting(enabled bool) Option {
	return func(r *Repo) {
		r.copyFormatting = enabled
	}
}

// WithLogger は書式コピー失敗などを記録するロガーを設定します
func WithLogger(log zerolog.Logger) Option {
	return func(r *Repo) {
		r.log = log
	}
}

// NewRepo はサービスアカウントの認証情報から Sheets リポジトリを初期化します
func NewRepo(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheetName string, opts ...Option) (*Repo, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: クライアント初期化失敗: %w", err)
	}
	return NewRepoWithService(svc, spreadsheetID, sheetName, opts...), nil
}

// NewRepoWithService は初期化済みの sheets.Service から Repo を作成します
func NewRepoWithService(svc *sheets.Service, spreadsheetID, sheetName string, opts ...Option) *Repo {
	r := &Repo{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadAllRows は全注文を挿入順で返します
func (r *Repo) ReadAllRows(ctx context.Context) ([]domain.Order, error) {
	header, rows, err := r.readSheet(ctx)
	if err != nil {
		return nil, err
	}
	return toOrders(header, rows), nil
}

// ReadRows は最新 limit 件の注文を挿入順で返します
func (r *Repo) ReadRows(ctx context.Context, limit int) ([]domain.Order, error) {
	header, rows, err := r.readSheet(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return toOrders(header, rows), nil
}

// AppendRows は注文を列見出しの順に並べて末尾に追加します
// 見出しに無いキーは書き込みません
func (r *Repo) AppendRows(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("sheets: %d件目の検証失敗: %w", i+1, err)
		}
	}

	header, err := r.readHeader(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		return fmt.Errorf("sheets: 見出し行がありません (sheet=%s): %w", r.sheetName, domain.ErrInvalid)
	}

	values := make([][]interface{}, 0, len(orders))
	for _, o := range orders {
		values = append(values, toRow(header, o))
	}

	resp, err := r.svc.Spreadsheets.Values.Append(r.spreadsheetID, quoteSheet(r.sheetName), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: 行追加失敗 (rows=%d): %w", len(values), err)
	}

	// 行は保存済みなので、書式コピーの失敗は記録だけして成功扱いにします
	if r.copyFormatting && resp.Updates != nil {
		if err := r.copyFormat(ctx, resp.Updates.UpdatedRange); err != nil {
			r.log.Warn().Err(err).
				Str("range", resp.Updates.UpdatedRange).
				Int("rows", len(values)).
				Msg("format copy failed, rows kept")
		}
	}

	return nil
}

// copyFormat は追記範囲の直前のデータ行の書式を追記範囲へコピーします
func (r *Repo) copyFormat(ctx context.Context, updatedRange string) error {
	start, end, err := parseRowSpan(updatedRange)
	if err != nil {
		return err
	}
	// 直前が見出し行の場合はコピー元がありません
	if start <= 2 {
		return nil
	}

	sheetID, err := r.sheetID(ctx)
	if err != nil {
		return err
	}

	// GridRange は 0 始まり・終端は含まない
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			CopyPaste: &sheets.CopyPasteRequest{
				Source: &sheets.GridRange{
					SheetId:         sheetID,
					StartRowIndex:   int64(start - 2),
					EndRowIndex:     int64(start - 1),
					ForceSendFields: []string{"SheetId"},
				},
				Destination: &sheets.GridRange{
					SheetId:         sheetID,
					StartRowIndex:   int64(start - 1),
					EndRowIndex:     int64(end),
					ForceSendFields: []string{"SheetId"},
				},
				PasteType: pasteFormat,
			},
		}},
	}

	if _, err := r.svc.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: 書式コピー失敗 (range=%s): %w", updatedRange, err)
	}
	return nil
}

// sheetID はシート名から数値のシートIDを取得します
func (r *Repo) sheetID(ctx context.Context) (int64, error) {
	ss, err := r.svc.Spreadsheets.Get(r.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: スプレッドシート情報取得失敗: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == r.sheetName {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheets: シートが見つかりません (sheet=%s): %w", r.sheetName, domain.ErrNotFound)
}

// readSheet はシート全体を読み込み、見出しとデータ行に分けます
func (r *Repo) readSheet(ctx context.Context) ([]string, [][]interface{}, error) {
	vr, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, quoteSheet(r.sheetName)).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("sheets: 行取得失敗 (sheet=%s): %w", r.sheetName, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil, nil
	}
	return toStrings(vr.Values[0]), vr.Values[1:], nil
}

// readHeader は1行目の列見出しだけを読み込みます
func (r *Repo) readHeader(ctx context.Context) ([]string, error) {
	vr, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, quoteSheet(r.sheetName)+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: 見出し取得失敗 (sheet=%s): %w", r.sheetName, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return toStrings(vr.Values[0]), nil
}

// toOrders は行を見出しをキーにした Order に変換します
// 同じ見出しが複数ある場合は最初の列の値を使います
func toOrders(header []string, rows [][]interface{}) []domain.Order {
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o := make(domain.Order, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if _, seen := o[h]; seen {
				continue
			}
			if i < len(row) {
				o[h] = fmt.Sprint(row[i])
			} else {
				o[h] = ""
			}
		}
		orders = append(orders, o)
	}
	return orders
}

// toRow は Order を見出しの順に並べます。同じ見出しの列すべてに値を入れます
func toRow(header []string, o domain.Order) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = o[h]
	}
	return row
}

func toStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(fmt.Sprint(c))
	}
	return out
}

// quoteSheet は A1 表記用にシート名を引用符で囲みます
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// parseRowSpan は A1 表記の範囲から開始行と終了行（1 始まり）を取り出します
func parseRowSpan(a1 string) (int, int, error) {
	m := updatedRangeRe.FindStringSubmatch(a1)
	if m == nil {
		return 0, 0, fmt.Errorf("sheets: 範囲を解析できません: %q", a1)
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("sheets: 開始行を解析できません: %q: %w", a1, err)
	}
	end := start
	if m[2] != "" {
		if end, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, fmt.Errorf("sheets: 終了行を解析できません: %q: %w", a1, err)
		}
	}
	return start, end, nil
}
