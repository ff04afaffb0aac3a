// Package main provides localization for the vidout CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Stream":  "ストリーム",
		"Source":  "フレームソース",
		"Output":  "出力先",
		"Logging": "ログ",

		// Root command
		"Stream generated video frames to an output device": "生成した映像フレームを出力デバイスへ送信",

		// Run command
		"Stream frames to the configured backend": "設定されたバックエンドへフレームを送信",
		"Negotiate a format, then fill and send frames until the frame limit is reached or the stream is interrupted.": "フォーマットを設定し、フレーム数の上限に達するか中断されるまでフレームを生成して送信します。",
		"YAML configuration file": "YAML設定ファイル",

		// Stream flags
		"Output backend (null, file, mjpeg)":               "出力バックエンド（null, file, mjpeg）",
		"Frame format, e.g. \"YUYV 640x480 @ 30\"":         "フレームフォーマット（例: \"YUYV 640x480 @ 30\"）",
		"Number of frames to send (0 = until interrupted)": "送信するフレーム数（0 = 中断されるまで）",
		"Send frames as fast as the sink accepts them":     "シンクが受け付ける限り速くフレームを送信",
		"Number of device buffers":                         "デバイスバッファの数",
		"Maximum wait for a free buffer (0 = no limit)":    "空きバッファを待つ最大時間（0 = 無制限）",

		// Source flags
		"Frame source (testcard, image)":                              "フレームソース（testcard, image）",
		"Image file or directory to play (implies --source image)":    "再生する画像ファイルまたはディレクトリ（--source image を含意）",
		"Frames to show each image":                                   "各画像を表示するフレーム数",
		"Text shown on the test card":                                 "テストカードに表示するテキスト",
		"TrueType font for the test card label":                       "テストカードのラベル用TrueTypeフォント",

		// Output flags
		"Directory for the file backend":             "fileバックエンドの出力ディレクトリ",
		"Write PNG files instead of raw frames":      "生フレームの代わりにPNGファイルを書き込む",
		"Listen address for the mjpeg backend":       "mjpegバックエンドの待ち受けアドレス",
		"JPEG quality for the mjpeg backend (1-100)": "mjpegバックエンドのJPEG品質（1-100）",
		"Write a session summary (.md or .yaml)":     "セッションサマリーを書き出す（.md または .yaml）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",
		"Prefix log lines with the time":       "ログ行の先頭に時刻を付ける",

		// Formats command
		"List supported pixel formats": "対応ピクセルフォーマットを一覧表示",
		"BYTES":                        "バイト",
		"IMAGE":                        "画像変換",
		"yes":                          "可",
		"no":                           "不可",

		// Config command
		"Print the effective configuration as YAML": "有効な設定をYAMLで表示",

		// Runtime messages
		"Error: %v":                   "エラー: %v",
		"Summary saved to %s":         "サマリーを %s に保存しました",
		"Failed to write summary: %v": "サマリーの書き込みに失敗しました: %v",

		"Format %s adjusted to %s to fit the size limits": "サイズ制限に合わせてフォーマット %s を %s に調整しました",

		// Summary content
		"Streaming Summary":  "ストリーミングサマリー",
		"Generated":          "生成日時",
		"Results":            "実行結果",
		"Settings":           "設定",
		"Item":               "項目",
		"Value":              "値",
		"Session":            "セッション",
		"Frames Sent":        "送信フレーム数",
		"Duration":           "所要時間",
		"Average Frame Rate": "平均フレームレート",
		"Aborted":            "中断",
		"Error":              "エラー",
		"Backend":            "バックエンド",
		"Sink":               "シンク",
		"Format":             "フォーマット",
		"Frame Limit":        "フレーム上限",
		"Paced":              "ペース制御",
		"Buffers":            "バッファ数",
		"Buffer Traffic":     "バッファ使用状況",
		"Acquired":           "取得",
		"Sent":               "送信",
		"Transmitted":        "転送完了",
		"Dropped":            "破棄",
		"Blocked Gets":       "待機した取得",
		"Unlimited":          "無制限",
		"Yes":                "はい",
		"No":                 "いいえ",
		"Generated by":       "生成:",
	})
}
