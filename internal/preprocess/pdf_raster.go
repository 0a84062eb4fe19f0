package preprocess

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joseph-ayodele/salesbook/internal/common"
)

// renderFirstPage rasterizes page 1 of the PDF to PNG and returns its bytes.
// Later pages are never rendered, and the page's long edge is scaled to
// RenderEdge pixels whatever size the PDF declares.
func (p *Preprocessor) renderFirstPage(ctx context.Context, ws *workspace, pdf []byte) ([]byte, error) {
	in, err := ws.write("upload.pdf", pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	prefix := ws.path("page")
	// pdftoppm -f 1 -l 1 -singlefile -scale-to <edge> -png <in.pdf> <ws/page>  =>  ws/page.png
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm,
		"-f", "1", "-l", "1", "-singlefile",
		"-scale-to", strconv.Itoa(p.cfg.RenderEdge),
		"-png", in, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftoppm: %v: %s", common.ErrExtractionFailed, err, truncate(string(errb), 512))
	}

	page, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm produced no page: %v", common.ErrExtractionFailed, err)
	}
	return page, nil
}
