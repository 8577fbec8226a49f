package calendar

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	gcal "google.golang.org/api/calendar/v3"
)

// imageURLTemplate 添付ファイルIDから公開サムネイルURLを作るテンプレート
const imageURLTemplate = "https://drive.google.com/thumbnail?id=%s&sz=w1000"

var (
	// https://drive.google.com/file/d/<id>/view
	driveFilePathPattern = regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`)
	// https://drive.google.com/open?id=<id>
	driveFileQueryPattern = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
)

// resolveImage 添付ファイルから表示用の画像URLを決定する
//
// image/* の添付を優先し、無ければ先頭の添付を使う。使えるIDが無ければ空文字を返す。
func resolveImage(attachments []*gcal.EventAttachment) string {
	attachment := pickAttachment(attachments)
	if attachment == nil {
		return ""
	}

	fileID := strings.TrimSpace(attachment.FileId)
	if fileID == "" {
		fileID = fileIDFromURL(attachment.FileUrl)
	}
	if fileID == "" {
		return ""
	}
	return fmt.Sprintf(imageURLTemplate, url.QueryEscape(fileID))
}

func pickAttachment(attachments []*gcal.EventAttachment) *gcal.EventAttachment {
	var first *gcal.EventAttachment
	for _, a := range attachments {
		if a == nil {
			continue
		}
		if first == nil {
			first = a
		}
		if strings.HasPrefix(a.MimeType, "image/") {
			return a
		}
	}
	return first
}

// fileIDFromURL DriveのファイルURLからIDを取り出す
func fileIDFromURL(fileURL string) string {
	if fileURL == "" {
		return ""
	}
	if m := driveFilePathPattern.FindStringSubmatch(fileURL); m != nil {
		return m[1]
	}
	if m := driveFileQueryPattern.FindStringSubmatch(fileURL); m != nil {
		return m[1]
	}
	return ""
}
