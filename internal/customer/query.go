// Package customer は顧客管理のドメインロジックを提供する。
//
// 一覧クエリパイプラインは、ユーザー入力のフィルタ・ソート・ページ指定を
// 正規化し、リポジトリへの問い合わせとページネーションメタデータの算出を行う。
package customer

import (
	"github.com/hitoshi/kanri/internal/model"
)

// PageSize は一覧の1ページあたりの表示件数。
const PageSize = 5

// ソートキーの正規化済み値。
const (
	SortKeyName = "name"
	SortKeyAge  = "age"
)

// ソート方向の正規化済み値。
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListParams は一覧リクエストの生のクエリパラメータ。
// 値はすべて未検証でよい。normalizeが不正値をデフォルトに落とす。
type ListParams struct {
	Query         string // 名前の部分一致フィルタ（大文字小文字を区別しない）
	SortKey       string // "name" | "age"
	SortDirection string // "asc" | "desc"
	Page          int    // 1始まりのページ番号
}

// normalize は不正・欠落パラメータをデフォルト値に正規化する。
// 不明なソートキーはname、不明なソート方向はasc、1未満のページ番号は1になる。
// エラーは返さない（読み取り系の寛容ポリシー）。
func (p ListParams) normalize() ListParams {
	switch p.SortKey {
	case SortKeyName, SortKeyAge:
	default:
		p.SortKey = SortKeyName
	}

	switch p.SortDirection {
	case SortAsc, SortDesc:
	default:
		p.SortDirection = SortAsc
	}

	if p.Page < 1 {
		p.Page = 1
	}

	return p
}

// Page は一覧結果の1ページとページネーションメタデータを表す。
// Query/SortKey/SortDirectionには正規化後の値がエコーバックされ、
// ナビゲーションリンクの生成に使用する。
type Page struct {
	Items         []*model.Customer
	PageNumber    int
	PageSize      int
	TotalItems    int
	TotalPages    int
	HasPrevious   bool
	HasNext       bool
	Query         string
	SortKey       string
	SortDirection string
}

// newPage は取得済みアイテムとフィルタ適用後の総数からPageを構築する。
// totalPagesはceil(totalItems / PageSize)で、総数0のときは0になる。
// 最終ページを超えたページ番号でもメタデータは正しく算出される。
func newPage(items []*model.Customer, params ListParams, totalItems int) *Page {
	totalPages := (totalItems + PageSize - 1) / PageSize

	return &Page{
		Items:         items,
		PageNumber:    params.Page,
		PageSize:      PageSize,
		TotalItems:    totalItems,
		TotalPages:    totalPages,
		HasPrevious:   params.Page > 1,
		HasNext:       params.Page < totalPages,
		Query:         params.Query,
		SortKey:       params.SortKey,
		SortDirection: params.SortDirection,
	}
}
