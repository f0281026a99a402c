// Package messages holds the user-visible text of the member desk: the
// notification shown after each write outcome, tab labels and table headers.
package messages

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies one message.
type Key string

// Notification outcomes.
const (
	AddSuccess    Key = "add-success"
	AddFailure    Key = "add-failure"
	UpdateSuccess Key = "update-success"
	UpdateFailure Key = "update-failure"
)

// Page text.
const (
	PageTitle      Key = "page-title"
	TabTotals      Key = "tab-totals"
	TabAdd         Key = "tab-add"
	TabModify      Key = "tab-modify"
	TabSearch      Key = "tab-search"
	ColMemberID    Key = "col-member-id"
	ColTotalFee    Key = "col-total-fee"
	ColTxID        Key = "col-tx-id"
	ColBorrowFee   Key = "col-borrow-fee"
	ColCreateTime  Key = "col-create-time"
	FieldName      Key = "field-name"
	FieldMemberID  Key = "field-member-id"
	FieldStartDate Key = "field-start-date"
	FieldEndDate   Key = "field-end-date"
	ActionAdd      Key = "action-add"
	ActionUpdate   Key = "action-update"
	ActionSearch   Key = "action-search"
	ActionRefresh  Key = "action-refresh"
)

var (
	TraditionalChinese = language.MustParse("zh-TW")
	English            = language.English
)

var translations = map[language.Tag]map[Key]string{
	TraditionalChinese: {
		AddSuccess:     "客戶成功新增",
		AddFailure:     "新增客戶時出錯",
		UpdateSuccess:  "客戶資料已更新",
		UpdateFailure:  "更新客戶資料時出錯",
		PageTitle:      "會員交易管理",
		TabTotals:      "交易總額",
		TabAdd:         "新增客戶",
		TabModify:      "修改客戶",
		TabSearch:      "查詢交易",
		ColMemberID:    "客戶編號",
		ColTotalFee:    "交易總額",
		ColTxID:        "交易編號",
		ColBorrowFee:   "交易金額",
		ColCreateTime:  "交易時間",
		FieldName:      "客戶名稱",
		FieldMemberID:  "客戶編號",
		FieldStartDate: "開始日期",
		FieldEndDate:   "結束日期",
		ActionAdd:      "新增",
		ActionUpdate:   "更新",
		ActionSearch:   "查詢",
		ActionRefresh:  "重新整理",
	},
	English: {
		AddSuccess:     "Member added",
		AddFailure:     "Error while adding member",
		UpdateSuccess:  "Member updated",
		UpdateFailure:  "Error while updating member",
		PageTitle:      "Member transactions",
		TabTotals:      "Totals",
		TabAdd:         "Add member",
		TabModify:      "Edit member",
		TabSearch:      "Search transactions",
		ColMemberID:    "Member ID",
		ColTotalFee:    "Total fee",
		ColTxID:        "Transaction ID",
		ColBorrowFee:   "Fee",
		ColCreateTime:  "Created at",
		FieldName:      "Name",
		FieldMemberID:  "Member ID",
		FieldStartDate: "Start date",
		FieldEndDate:   "End date",
		ActionAdd:      "Add",
		ActionUpdate:   "Update",
		ActionSearch:   "Search",
		ActionRefresh:  "Refresh",
	},
}

// Catalog resolves locales and hands out printers.
type Catalog struct {
	builder   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

// New builds the catalog. defaultLocale is used when nothing better matches;
// it must resolve to a supported locale.
func New(defaultLocale string) (*Catalog, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parse default locale %q: %w", defaultLocale, err)
	}

	base := []language.Tag{TraditionalChinese, English}
	_, idx, conf := language.NewMatcher(base).Match(def)
	if conf == language.No {
		return nil, fmt.Errorf("unsupported default locale %q", defaultLocale)
	}
	def = base[idx]

	supported := []language.Tag{def}
	for _, t := range base {
		if t != def {
			supported = append(supported, t)
		}
	}

	b := catalog.NewBuilder(catalog.Fallback(def))
	for tag, table := range translations {
		for k, v := range table {
			if err := b.SetString(tag, string(k), v); err != nil {
				return nil, fmt.Errorf("set %s/%s: %w", tag, k, err)
			}
		}
	}

	return &Catalog{
		builder:   b,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Default returns the fallback locale.
func (c *Catalog) Default() language.Tag { return c.supported[0] }

// Match picks the supported locale closest to the given Accept-Language
// values, falling back to the default.
func (c *Catalog) Match(acceptLanguage ...string) language.Tag {
	_, idx := language.MatchStrings(c.matcher, acceptLanguage...)
	return c.supported[idx]
}

// Printer returns a printer for tag.
func (c *Catalog) Printer(tag language.Tag) *Printer {
	return &Printer{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(c.builder)),
	}
}

// Printer renders messages for one locale.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// Text returns the message for k.
func (p *Printer) Text(k Key) string {
	return p.p.Sprintf(string(k))
}

// Locale returns the BCP 47 tag of the printer.
func (p *Printer) Locale() string {
	return p.tag.String()
}

// Labels returns every message keyed by its Key text, for templates.
func (p *Printer) Labels() map[string]string {
	out := make(map[string]string, len(translations[English]))
	for k := range translations[English] {
		out[string(k)] = p.Text(k)
	}
	return out
}
