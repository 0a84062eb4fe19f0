package server

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/qr"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

func dialScan(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/receipts/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// scanFrame renders a frame no larger than the scan region, so the whole code
// sits inside the decoded square.
func scanFrame(t *testing.T, payload string) []byte {
	t.Helper()
	buf, err := qr.RenderPNG(payload, 240)
	require.NoError(t, err)
	return buf
}

// pngHeader declares a w x h greyscale PNG but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func readScanResult(t *testing.T, conn *websocket.Conn) verify.Result {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var res verify.Result
	require.NoError(t, conn.ReadJSON(&res))
	return res
}

func TestScanSessionVerifiesFirstDecodedFrame(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{FPS: 20, RegionSize: 250, MaxSession: 5 * time.Second})
	rec := env.createReceipt(t, "owner-1")
	conn := dialScan(t, env)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("not a frame")))
	frame := scanFrame(t, fmt.Sprintf(`{"id":%d}`, rec.ID))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))

	res := readScanResult(t, conn)
	require.True(t, res.Valid)
	require.Equal(t, rec.ID, res.Receipt.ID)

	// The server closes after its single result.
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestScanSessionUnknownReceipt(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{FPS: 20, RegionSize: 250, MaxSession: 5 * time.Second})
	conn := dialScan(t, env)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, scanFrame(t, "777777")))

	res := readScanResult(t, conn)
	require.False(t, res.Valid)
	require.Equal(t, constants.MsgReceiptNotFound, res.Error)
}

func TestScanSessionTimesOut(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{FPS: 20, RegionSize: 250, MaxSession: 200 * time.Millisecond})
	conn := dialScan(t, env)

	res := readScanResult(t, conn)
	require.False(t, res.Valid)
	require.Equal(t, constants.MsgQRNotFound, res.Error)
}

func TestScanSessionClientStop(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{FPS: 20, RegionSize: 250, MaxSession: 5 * time.Second})
	conn := dialScan(t, env)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("stop")))

	// No result is sent for a stopped session; the server just hangs up.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var ne net.Error
	require.False(t, errors.As(err, &ne) && ne.Timeout(), "server kept the session open after stop")
}

func TestScanDecodeFrameEnforcesPixelBudget(t *testing.T) {
	tests := []struct {
		name    string
		cfg     common.ScanConfig
		frame   []byte
		wantErr error
	}{
		{"regular frame", common.ScanConfig{}, scanFrame(t, "1"), nil},
		{"oversized header with default budget", common.ScanConfig{}, pngHeader(20000, 20000), common.ErrUnsupportedFormat},
		{"over a configured budget", common.ScanConfig{MaxFramePixels: 200 * 200}, scanFrame(t, "1"), common.ErrUnsupportedFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewScanHandler(nil, nil, tc.cfg, 0, nil)

			start := time.Now()
			frame, err := h.decodeFrame(tc.frame)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Less(t, time.Since(start), time.Second)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, frame)
		})
	}
}

func TestScanSessionSkipsOversizedFrames(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{FPS: 20, RegionSize: 250, MaxSession: 5 * time.Second})
	rec := env.createReceipt(t, "owner-1")
	conn := dialScan(t, env)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngHeader(20000, 20000)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, scanFrame(t, fmt.Sprintf(`{"id":%d}`, rec.ID))))

	res := readScanResult(t, conn)
	require.True(t, res.Valid)
	require.Equal(t, rec.ID, res.Receipt.ID)
}
