package request

import (
	"fmt"
	"mime/multipart"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdintake"
)

// ToUpload 将 multipart 文件转换为上传对象，调用方负责关闭返回的文件
func ToUpload(fh *multipart.FileHeader) (*mdintake.Upload, multipart.File, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload failed: %w", err)
	}
	return &mdintake.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		MIMEType: fh.Header.Get("Content-Type"),
		Body:     file,
	}, file, nil
}
