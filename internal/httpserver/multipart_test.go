package httpserver

import (
	"io"
	"mime/multipart"
	"net/textproto"
)

type multipartBuilder struct {
	w *multipart.Writer
}

func newMultipart(dst io.Writer) *multipartBuilder {
	return &multipartBuilder{w: multipart.NewWriter(dst)}
}

func (b *multipartBuilder) field(name, value string) {
	b.w.WriteField(name, value)
}

func (b *multipartBuilder) file(name, filename string, data []byte) {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, _ := b.w.CreatePart(h)
	part.Write(data)
}

func (b *multipartBuilder) close() string {
	b.w.Close()
	return b.w.FormDataContentType()
}
