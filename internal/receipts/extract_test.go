package receipts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAmount(t *testing.T) {
	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{text: "Pix enviado R$ 50,00 para Escola", want: 5000, ok: true},
		{text: "Valor: R$ 1.234,56", want: 123456, ok: true},
		{text: "valor da transferência 25,90", want: 2590, ok: true},
		{text: "R$1500,00", want: 150000, ok: true},
		{text: "Total R$ 0,00", ok: false},
		{text: "obrigado pela doação", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := DetectAmount(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestExtractReceiptPlainTextWithAttachment(t *testing.T) {
	ext, err := ExtractReceipt([]byte(mimeWithAttachment))
	require.NoError(t, err)

	assert.Equal(t, "Comprovante PIX", ext.Subject)
	require.Len(t, ext.Attachments, 1)
	assert.Equal(t, "comprovante.png", ext.Attachments[0].FileName)
	assert.Equal(t, "png", ext.Attachments[0].Extension())
	assert.Equal(t, []byte("fake-png"), ext.Attachments[0].Data)
	require.NotNil(t, ext.Amount)
	assert.Equal(t, int64(7550), *ext.Amount)
	assert.Equal(t, "text", ext.AmountSource)
}

func TestExtractReceiptHTMLOnly(t *testing.T) {
	ext, err := ExtractReceipt([]byte(mimeHTMLOnly))
	require.NoError(t, err)

	assert.Empty(t, ext.Attachments)
	require.NotNil(t, ext.Amount)
	assert.Equal(t, int64(12000), *ext.Amount)
}

func TestAttachmentExtension(t *testing.T) {
	assert.Equal(t, "pdf", Attachment{ContentType: "application/pdf"}.Extension())
	assert.Equal(t, "jpeg", Attachment{FileName: "IMG.JPEG"}.Extension())
	assert.Equal(t, "jpg", Attachment{ContentType: "image/jpeg"}.Extension())
}

var mimeWithAttachment = strings.ReplaceAll(`From: Ana <ana@example.com>
To: doacoes@escola.org
Subject: Comprovante PIX
Message-ID: <m1@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Segue comprovante da doação. Valor: R$ 75,50
--XYZ
Content-Type: image/png
Content-Disposition: attachment; filename="comprovante.png"
Content-Transfer-Encoding: base64

ZmFrZS1wbmc=
--XYZ--
`, "\n", "\r\n")

var mimeHTMLOnly = strings.ReplaceAll(`From: Bia <bia@example.com>
To: doacoes@escola.org
Subject: Doacao PIX
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<html><body><table><tr><td>Valor</td><td>R$ 120,00</td></tr></table></body></html>
`, "\n", "\r\n")
