package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
)

type updateLyricsRequest struct {
	MusicFileID string `json:"musicFileId"`
	Lyrics      string `json:"lyrics"`
	UpdatedBy   string `json:"updatedBy"`
}

type deleteMusicRequest struct {
	UpdatedBy string `json:"updatedBy"`
}

func (s *Server) UploadMusic(c *gin.Context) {
	// 1 MiB of multipart overhead on top of the payload bound.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, musicdomain.MaxUploadBytes+1<<20)

	orderID := strings.TrimSpace(c.PostForm("orderId"))
	if orderID == "" {
		AbortWithError(c, musicdomain.ErrInvalidOrder)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if header.Size > musicdomain.MaxUploadBytes {
		AbortWithError(c, musicdomain.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	defer file.Close()

	filename := strings.TrimSpace(c.PostForm("filename"))
	if filename == "" {
		filename = header.Filename
	}

	musicFile, err := s.musicSvc.Upload(c.Request.Context(), musicdomain.UploadRequest{
		OrderID:     orderID,
		Filename:    filename,
		Title:       strings.TrimSpace(c.PostForm("title")),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		UpdatedBy:   strings.TrimSpace(c.PostForm("updatedBy")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "musicFile": musicFile})
}

func (s *Server) UpdateLyrics(c *gin.Context) {
	var req updateLyricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.musicSvc.UpdateLyrics(c.Request.Context(), musicdomain.UpdateLyricsRequest{
		MusicFileID: strings.TrimSpace(req.MusicFileID),
		Lyrics:      req.Lyrics,
		UpdatedBy:   strings.TrimSpace(req.UpdatedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) DeleteMusic(c *gin.Context) {
	var req deleteMusicRequest
	_ = c.ShouldBindJSON(&req)

	err := s.musicSvc.Delete(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.UpdatedBy))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
