package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/dmitrijs2005/heartwall/internal/client/services"
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/filex"
	"github.com/dmitrijs2005/heartwall/internal/transform"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

func (a *App) List(ctx context.Context) error {
	snap := a.svc.Gallery().Snapshot()
	if len(snap) == 0 {
		printlnFn("No memories yet")
		return nil
	}
	for _, m := range snap {
		printlnFn(formatCard(m))
	}
	return nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("open <path>")
	}
	path := strings.Join(args, " ")

	data, err := readFile(path)
	if err != nil {
		return err
	}

	sess, err := a.svc.Open(filepath.Base(path), contentTypeFor(path, data), data)
	if err != nil {
		return err
	}
	w, h := sess.SourceSize()
	printlnFn(fmt.Sprintf("Opened %s (%s, %dx%d). Use pan, zoom and preview, then upload <message>.",
		sess.SourceName(), sess.Format(), w, h))
	return nil
}

func (a *App) session() (*transform.Session, error) {
	sess := a.svc.Session()
	if sess == nil {
		return nil, common.ErrNoSession
	}
	return sess, nil
}

func (a *App) Pan(ctx context.Context, args []string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	v, err := parseFloats(args, 2, "pan <dx> <dy>")
	if err != nil {
		return err
	}
	sess.Pan(v[0], v[1])
	printlnFn(formatPlacement(sess.Params()))
	return nil
}

func (a *App) Zoom(ctx context.Context, args []string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	v, err := parseFloats(args, 1, "zoom <scale>")
	if err != nil {
		return err
	}
	sess.SetScale(v[0])
	printlnFn(formatPlacement(sess.Params()))
	return nil
}

func (a *App) Preview(ctx context.Context, args []string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}

	printlnFn("Rendering...")
	arts, err := sess.Render(ctx)
	if err != nil {
		return err
	}

	path := strings.Join(args, " ")
	if path == "" {
		dir, err := filex.EnsureDir(a.config.PreviewDir)
		if err != nil {
			return err
		}
		path = filepath.Join(dir, arts.Cropped.Name)
	}
	if err := filex.WriteFileAtomic(path, arts.Cropped.Data); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Preview written to %s (%dx%d)", path, arts.Cropped.Width, arts.Cropped.Height))
	return nil
}

func (a *App) Nickname(ctx context.Context, args []string) error {
	name := common.NormalizeText(strings.Join(args, " "))
	if common.TextLength(name) > common.MaxNicknameLength {
		return common.ErrNicknameTooLong
	}
	a.setNickname(name)
	if name == "" {
		printlnFn("Nickname cleared")
	} else {
		printlnFn("Nickname set to", name)
	}
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	printlnFn("Uploading...")
	a.holdAnnouncements()
	rec, err := a.svc.Submit(ctx, a.currentNickname(), strings.Join(args, " "))
	if err != nil {
		a.releaseAnnouncements(0)
		return &hintError{err: err, hint: uploadHint(err)}
	}
	printlnFn("Saved:", formatCard(*rec))
	a.releaseAnnouncements(rec.ID)
	return nil
}

const (
	hintRetry    = "Your photo is still selected, run upload again to retry"
	hintReselect = "Select a photo with open"
	hintEditText = "Edit the text and run upload again"
)

func uploadHint(err error) string {
	switch {
	case services.IsRetryable(err):
		return hintRetry
	case errors.Is(err, common.ErrNoSession), errors.Is(err, common.ErrDecode):
		return hintReselect
	case common.IsValidation(err):
		return hintEditText
	}
	return ""
}

func (a *App) Cancel(ctx context.Context) error {
	if a.svc.Session() == nil {
		return common.ErrNoSession
	}
	a.svc.Cancel()
	printlnFn("Selection discarded")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.svc.Refresh(ctx); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%d memories on the wall", a.svc.Gallery().Len()))
	return nil
}

func formatCard(m models.Memory) string {
	from := ""
	if m.Nickname != "" {
		from = m.Nickname + ": "
	}
	return fmt.Sprintf("#%d  %s  %s%s", m.ID, m.CreatedAt.Local().Format(time.DateTime), from, m.Message)
}

func formatPlacement(p transform.Params) string {
	return fmt.Sprintf("offset (%.0f, %.0f), scale %.2f", p.OffsetX, p.OffsetY, p.Scale)
}
