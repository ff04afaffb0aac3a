package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Engine
		"Streaming to %s (%s)":                "%s へストリーミング中 (%s)",
		"Stream finished: %d frames in %s":    "ストリーム終了: %d フレーム / %s",
		"Stream aborted after %d frames":      "%d フレーム後にストリームを中断しました",
		"Interrupted, aborting stream...":     "中断されました。ストリームを停止しています...",
		"Frame source failed on frame %d: %v": "フレーム %d の生成に失敗しました: %v",

		// Sinks
		"Format set to %s":                       "フォーマットを %s に設定しました",
		"Stream on: %s":                          "ストリーム開始: %s",
		"Stream on: %s, %d buffers, session %s":  "ストリーム開始: %s, バッファ %d 個, セッション %s",
		"Stream off after %d discarded frames":   "%d フレームを破棄してストリームを停止しました",
		"Stream off after %d transmitted frames": "%d フレームを送信してストリームを停止しました",
		"Abort requested, waking %d waiters":     "中断要求: 待機中 %d 件を起床します",
		"Transport %s failed: %v":                "トランスポート %s が失敗しました: %v",

		// Transports
		"Writing frames to %s":                 "フレームを %s に書き込み中",
		"MJPEG client connected: %s":           "MJPEG クライアント接続: %s",
		"MJPEG client disconnected: %s":        "MJPEG クライアント切断: %s",
		"Dropping frame %d for slow client %s": "フレーム %d を破棄しました (遅いクライアント %s)",
		"Listening on %s":                      "%s で待ち受け中",
		"WebSocket upgrade failed: %v":         "WebSocket へのアップグレードに失敗しました: %v",

		// Sources
		"Playing %d images from %s": "%[2]s の画像 %[1]d 枚を再生中",
	})
}
