package services

import (
	"blog/models"
	"blog/pagination"
	"context"
)

const IndexTitle = "Последние обновления на сайте"

type IndexContext struct {
	Title   string                       `json:"title"`
	PageObj pagination.Page[models.Post] `json:"page_obj"`
}

type GroupContext struct {
	Group   *models.Group                `json:"group"`
	PageObj pagination.Page[models.Post] `json:"page_obj"`
}

type ProfileContext struct {
	Author     *models.User                 `json:"author"`
	AuthorName string                       `json:"author_name"`
	PostCount  int64                        `json:"post_count"`
	Following  bool                         `json:"following"`
	PageObj    pagination.Page[models.Post] `json:"page_obj"`
}

type FollowContext struct {
	PostCount int64                        `json:"post_count"`
	PageObj   pagination.Page[models.Post] `json:"page_obj"`
}

// CommentFormDescriptor is the empty comment form shown under a post.
type CommentFormDescriptor struct {
	Fields []string `json:"fields"`
	Action string   `json:"action"`
}

type PostDetailContext struct {
	Post      *models.Post          `json:"post"`
	PostCount int64                 `json:"post_count"`
	Group     *models.Group         `json:"group"`
	Form      CommentFormDescriptor `json:"form"`
	Comments  []models.Comment      `json:"comments"`
}

// FeedService builds the read-side pages of the blog.
type FeedService struct {
	store    Store
	pageSize int
}

func NewFeedService(store Store, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &FeedService{store: store, pageSize: pageSize}
}

func (fs *FeedService) request(page string) pagination.Request {
	return pagination.NewRequest(page, fs.pageSize)
}

func (fs *FeedService) IndexFeed(ctx context.Context, page string) (*IndexContext, error) {
	posts, err := fs.store.FindAll(ctx, fs.request(page))
	if err != nil {
		return nil, err
	}
	return &IndexContext{Title: IndexTitle, PageObj: posts}, nil
}

func (fs *FeedService) GroupFeed(ctx context.Context, slug string, page string) (*GroupContext, error) {
	group, err := fs.store.FindGroupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	posts, err := fs.store.FindByGroup(ctx, group.ID, fs.request(page))
	if err != nil {
		return nil, err
	}
	return &GroupContext{Group: group, PageObj: posts}, nil
}

// ProfileFeed lists the posts of username. viewer may be nil for anonymous
// requests, in which case Following is always false.
func (fs *FeedService) ProfileFeed(ctx context.Context, username string, viewer *models.User, page string) (*ProfileContext, error) {
	author, err := fs.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := fs.store.FindByAuthor(ctx, author.ID, fs.request(page))
	if err != nil {
		return nil, err
	}

	following := false
	if viewer != nil {
		following, err = fs.store.FollowExists(ctx, viewer.ID, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ProfileContext{
		Author:     author,
		AuthorName: author.FullName(),
		PostCount:  posts.Count,
		Following:  following,
		PageObj:    posts,
	}, nil
}

func (fs *FeedService) FollowFeed(ctx context.Context, viewer *models.User, page string) (*FollowContext, error) {
	authorIDs, err := fs.store.FollowedAuthorIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	posts, err := fs.store.FindByAuthorsIn(ctx, authorIDs, fs.request(page))
	if err != nil {
		return nil, err
	}
	return &FollowContext{PostCount: posts.Count, PageObj: posts}, nil
}

func (fs *FeedService) PostDetail(ctx context.Context, postID int64) (*PostDetailContext, error) {
	post, err := fs.store.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	count, err := fs.store.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}
	comments, err := fs.store.ListComments(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetailContext{
		Post:      post,
		PostCount: count,
		Group:     post.Group,
		Form:      NewCommentFormDescriptor(post.ID),
		Comments:  comments,
	}, nil
}

func NewCommentFormDescriptor(postID int64) CommentFormDescriptor {
	return CommentFormDescriptor{
		Fields: []string{"text"},
		Action: PostURL(postID) + "comment/",
	}
}
