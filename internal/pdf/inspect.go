package pdf

import (
	"context"
)

// PageInfo はサムネイル配置に必要なページ単位の情報です。
type PageInfo struct {
	Number   int     `json:"number"`
	Rotation int     `json:"rotation"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// InspectResult はPDFの基本メタデータを表します。
type InspectResult struct {
	Size  int64      `json:"size"`
	Pages int        `json:"pages"`
	List  []PageInfo `json:"list"`
}

// Inspect はPDFのページ数と各ページの回転角・MediaBoxを返します。
func (s *Service) Inspect(ctx context.Context, data []byte) (*InspectResult, error) {
	pdfCtx, err := s.read(ctx, data)
	if err != nil {
		return nil, err
	}

	list := make([]PageInfo, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		_, _, inherited, err := pdfCtx.PageDict(pageNr, false)
		if err != nil {
			return nil, newError(CodeCorruptDocument, corruptMessage, err)
		}

		info := PageInfo{Number: pageNr}
		if inherited != nil {
			info.Rotation = normalizeRotation(inherited.Rotate)
			if inherited.MediaBox != nil {
				info.Width = inherited.MediaBox.Width()
				info.Height = inherited.MediaBox.Height()
			}
		}
		list = append(list, info)
	}

	return &InspectResult{
		Size:  int64(len(data)),
		Pages: pdfCtx.PageCount,
		List:  list,
	}, nil
}
