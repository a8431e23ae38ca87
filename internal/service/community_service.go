package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/repository"
	"github.com/vedran77/agora/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	mainPagePosts   = 5
	previewRunes    = 50
)

// Notifier pushes real-time chat events to connected clients.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
}

type BoardImages interface {
	UploadBoard(ctx context.Context, postID int64, first int, files []storage.File) ([]string, error)
	URLs(ctx context.Context, keys []string) ([]string, error)
}

type CommunityService struct {
	tx       repository.TxManager
	repos    repository.Repos
	images   BoardImages
	notifier Notifier
	now      func() time.Time
}

func NewCommunityService(tx repository.TxManager, repos repository.Repos, images BoardImages) *CommunityService {
	return &CommunityService{
		tx:     tx,
		repos:  repos,
		images: images,
		now:    time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *CommunityService) SetNotifier(n Notifier) {
	s.notifier = n
}

type PostInput struct {
	BoardType domain.BoardType `json:"boardType" validate:"required,oneof=FREE INFO QUESTION"`
	Title     string           `json:"title" validate:"required,max=20"`
	Content   string           `json:"content" validate:"required,max=5000"`
}

type ContentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type PostDetail struct {
	domain.Post
	ImageURLs []string         `json:"imageUrls"`
	Comments  []domain.Comment `json:"comments"`
}

type RoomMessages struct {
	PostID   int64            `json:"postId"`
	OtherID  int64            `json:"otherId"`
	Messages []domain.Message `json:"messages"`
}

// Posts

func (s *CommunityService) CreatePost(ctx context.Context, userID int64, input PostInput) (*domain.Post, error) {
	if !input.BoardType.Valid() {
		return nil, domain.ErrBoardTypeNotValid
	}

	now := s.now()
	post := &domain.Post{
		AuthorID:  userID,
		BoardType: input.BoardType,
		Title:     input.Title,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return post, nil
}

func (s *CommunityService) GetPost(ctx context.Context, postID int64) (*PostDetail, error) {
	post, err := s.getPost(ctx, s.repos, postID)
	if err != nil {
		return nil, err
	}

	urls, err := s.images.URLs(ctx, post.ImageKeys)
	if err != nil {
		return nil, err
	}
	comments, err := s.repos.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return &PostDetail{Post: *post, ImageURLs: urls, Comments: comments}, nil
}

func (s *CommunityService) UpdatePost(ctx context.Context, userID, postID int64, input PostInput) (*domain.Post, error) {
	if !input.BoardType.Valid() {
		return nil, domain.ErrBoardTypeNotValid
	}

	var post *domain.Post
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		post, err = s.authoredPost(ctx, repos, userID, postID)
		if err != nil {
			return err
		}
		post.BoardType = input.BoardType
		post.Title = input.Title
		post.Content = input.Content
		post.UpdatedAt = s.now()
		return repos.Posts.Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) DeletePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.authoredPost(ctx, s.repos, userID, postID); err != nil {
		return err
	}
	return s.repos.Posts.SoftDelete(ctx, postID)
}

// ListPosts pages through one board, newest first. page is zero-based.
func (s *CommunityService) ListPosts(ctx context.Context, board domain.BoardType, page, size int) (domain.Page[domain.Post], error) {
	if !board.Valid() {
		return domain.Page[domain.Post]{}, domain.ErrBoardTypeNotValid
	}
	page, size = normalizePage(page, size)

	posts, total, err := s.repos.Posts.ListByBoard(ctx, board, page*size, size)
	if err != nil {
		return domain.Page[domain.Post]{}, err
	}
	return domain.NewPage(posts, page, size, total), nil
}

func (s *CommunityService) SearchPosts(ctx context.Context, keyword string, page, size int) (domain.Page[domain.Post], error) {
	page, size = normalizePage(page, size)

	posts, total, err := s.repos.Posts.Search(ctx, keyword, page*size, size)
	if err != nil {
		return domain.Page[domain.Post]{}, err
	}
	return domain.NewPage(posts, page, size, total), nil
}

// MainPage returns the latest posts of every board.
func (s *CommunityService) MainPage(ctx context.Context) (map[domain.BoardType][]domain.Post, error) {
	out := make(map[domain.BoardType][]domain.Post, len(domain.BoardTypes))
	for _, board := range domain.BoardTypes {
		posts, _, err := s.repos.Posts.ListByBoard(ctx, board, 0, mainPagePosts)
		if err != nil {
			return nil, err
		}
		if posts == nil {
			posts = []domain.Post{}
		}
		out[board] = posts
	}
	return out, nil
}

// AttachImages uploads files to the caller's post and returns presigned URLs
// for every image the post now carries.
func (s *CommunityService) AttachImages(ctx context.Context, userID, postID int64, files []storage.File) ([]string, error) {
	var post *domain.Post
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		post, err = s.authoredPost(ctx, repos, userID, postID)
		if err != nil {
			return err
		}

		keys, err := s.images.UploadBoard(ctx, postID, len(post.ImageKeys), files)
		if err != nil {
			return err
		}
		post.ImageKeys = append(post.ImageKeys, keys...)
		post.UpdatedAt = s.now()
		return repos.Posts.Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return s.images.URLs(ctx, post.ImageKeys)
}

// Comments

// CreateComment stores the comment and, when the commenter is not the post
// author, a COMMENT notification for the author.
func (s *CommunityService) CreateComment(ctx context.Context, userID, postID int64, content string) (*domain.Comment, error) {
	var comment *domain.Comment
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := s.getPost(ctx, repos, postID)
		if err != nil {
			return err
		}

		now := s.now()
		comment = &domain.Comment{
			PostID:    postID,
			AuthorID:  userID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}

		if post.AuthorID == userID {
			return nil
		}
		return repos.Notifications.Create(ctx, &domain.Notification{
			UserID:    post.AuthorID,
			Type:      domain.NotificationComment,
			RefID:     postID,
			Content:   preview(content),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommunityService) UpdateComment(ctx context.Context, userID, commentID int64, content string) (*domain.Comment, error) {
	comment, err := s.authoredComment(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	comment.Content = content
	comment.UpdatedAt = s.now()
	if err := s.repos.Comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommunityService) DeleteComment(ctx context.Context, userID, commentID int64) error {
	if _, err := s.authoredComment(ctx, userID, commentID); err != nil {
		return err
	}
	return s.repos.Comments.SoftDelete(ctx, commentID)
}

// Chat

// OpenRoom returns the room between the caller and the post author, creating
// it on first contact.
func (s *CommunityService) OpenRoom(ctx context.Context, userID, postID int64) (*domain.ChatRoom, error) {
	var room *domain.ChatRoom
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := s.getPost(ctx, repos, postID)
		if err != nil {
			return err
		}
		if post.AuthorID == userID {
			return domain.ErrCannotChatSelf
		}

		room, err = repos.Chats.GetRoom(ctx, postID, post.AuthorID, userID)
		if err != nil || room != nil {
			return err
		}

		room = &domain.ChatRoom{
			PostID:    postID,
			HostID:    post.AuthorID,
			GuestID:   userID,
			CreatedAt: s.now(),
		}
		return repos.Chats.CreateRoom(ctx, room)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// SendMessage stores the message plus a MESSAGE notification for the
// recipient, then pushes it to room subscribers.
func (s *CommunityService) SendMessage(ctx context.Context, userID, roomID int64, content string) (*domain.Message, error) {
	var msg *domain.Message
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		room, err := s.participantRoom(ctx, repos, userID, roomID)
		if err != nil {
			return err
		}
		sender, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if sender == nil {
			return domain.ErrUserNotFound
		}

		now := s.now()
		msg = &domain.Message{
			RoomID:         roomID,
			SenderID:       userID,
			RecipientID:    room.Other(userID),
			Content:        content,
			CreatedAt:      now,
			SenderNickname: sender.Nickname,
		}
		if err := repos.Chats.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}

		return repos.Notifications.Create(ctx, &domain.Notification{
			UserID:    msg.RecipientID,
			Type:      domain.NotificationMessage,
			RefID:     roomID,
			Content:   preview(content),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}
	return msg, nil
}

// RoomMessages marks the caller's incoming messages as read and returns the
// whole conversation.
func (s *CommunityService) RoomMessages(ctx context.Context, userID, roomID int64) (*RoomMessages, error) {
	room, err := s.participantRoom(ctx, s.repos, userID, roomID)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Chats.MarkRead(ctx, roomID, userID); err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}
	messages, err := s.repos.Chats.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &RoomMessages{PostID: room.PostID, OtherID: room.Other(userID), Messages: messages}, nil
}

func (s *CommunityService) ListRooms(ctx context.Context, userID int64) ([]domain.RoomSummary, error) {
	rooms, err := s.repos.Chats.ListRoomSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []domain.RoomSummary{}
	}
	return rooms, nil
}

// CanAccessRoom reports whether userID takes part in roomID. The websocket
// hub uses it to authorize subscriptions.
func (s *CommunityService) CanAccessRoom(ctx context.Context, userID, roomID int64) bool {
	_, err := s.participantRoom(ctx, s.repos, userID, roomID)
	if err != nil && domain.KindOf(err) == domain.KindInternal {
		logging.Ctx(ctx).Error().Err(err).Int64("room", roomID).Msg("room access check failed")
	}
	return err == nil
}

func (s *CommunityService) getPost(ctx context.Context, repos repository.Repos, postID int64) (*domain.Post, error) {
	post, err := repos.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *CommunityService) authoredPost(ctx context.Context, repos repository.Repos, userID, postID int64) (*domain.Post, error) {
	post, err := s.getPost(ctx, repos, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, domain.ErrNotAuthor
	}
	return post, nil
}

func (s *CommunityService) authoredComment(ctx context.Context, userID, commentID int64) (*domain.Comment, error) {
	comment, err := s.repos.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, domain.ErrCommentNotFound
	}
	if comment.AuthorID != userID {
		return nil, domain.ErrNotAuthor
	}
	return comment, nil
}

func (s *CommunityService) participantRoom(ctx context.Context, repos repository.Repos, userID, roomID int64) (*domain.ChatRoom, error) {
	room, err := repos.Chats.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrChatRoomNotFound
	}
	if !room.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return room, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// preview shortens content for notification bodies.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "…"
}
